package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"DirectoryHarvester/internal/domain"
	"DirectoryHarvester/internal/infrastructure/parser"
	"DirectoryHarvester/internal/pagination"
	"DirectoryHarvester/internal/poll"
)

const browserTestsEnv = "DIRECTORY_HARVESTER_BROWSER_TESTS"

// directoryPage re-renders its table body 300ms after "Next" is clicked.
const directoryPage = `<!doctype html>
<html><body>
<table class="slds-table"><tbody id="rows"></tbody></table>
<button id="next" class="slds-button slds-button_neutral">Next</button>
<script>
const pages = [
  [[".,Alice", "CPA", "Bank", "Ottawa"], ["Bob", "CPA", "Firm", "Toronto"]],
  [["Carol", "CPA, CA", "Shop", "Kingston"]],
];
let current = 0;
function render() {
  document.getElementById("rows").innerHTML = pages[current]
    .map(r => "<tr><th>" + r[0] + "</th>" + r.slice(1).map(c => "<td>" + c + "</td>").join("") + "</tr>")
    .join("");
  if (current === pages.length - 1) {
    document.getElementById("next").classList.add("slds-is-disabled");
  }
}
document.getElementById("next").addEventListener("click", () => {
  if (current >= pages.length - 1) return;
  current++;
  document.getElementById("rows").innerHTML = "";
  setTimeout(render, 300);
});
render();
</script>
</body></html>`

func TestOptionsDefaults(t *testing.T) {
	t.Parallel()

	var o Options
	o.defaults()

	if o.UserAgent != DefaultUserAgent {
		t.Fatalf("unexpected user agent %q", o.UserAgent)
	}
	if o.ViewportWidth != 1920 || o.ViewportHeight != 1080 {
		t.Fatalf("unexpected viewport %dx%d", o.ViewportWidth, o.ViewportHeight)
	}
	if o.NavigationTimeout != 60*time.Second || o.ActionTimeout != 10*time.Second {
		t.Fatalf("unexpected timeouts %s/%s", o.NavigationTimeout, o.ActionTimeout)
	}
	if o.Logger == nil {
		t.Fatalf("logger must be defaulted")
	}
}

func TestSessionAgainstLocalDirectory(t *testing.T) {
	if os.Getenv(browserTestsEnv) == "" {
		t.Skipf("set %s=1 to run tests that launch Chrome", browserTestsEnv)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(directoryPage))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	session, err := Launch(ctx, Options{Headless: true, NoSandbox: true})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer session.Close()

	page, err := session.Open(ctx, server.URL)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	extractor := parser.NewTableExtractor(5*time.Second, nil)
	first := extractor.Extract(ctx, page)
	if len(first) != 2 || first[0].MemberName != "Alice" {
		t.Fatalf("unexpected first page: %+v", first)
	}

	ctrl := pagination.NewController(page, extractor, pagination.Config{
		Fast: poll.Fixed(10, 100*time.Millisecond),
		Slow: poll.Escalating(3, 500*time.Millisecond, 1.5),
	}, nil)

	out := ctrl.Advance(ctx, first)
	if !out.Advanced {
		t.Fatalf("expected advance, got %q (%v)", out.Reason, out.Err)
	}
	want := domain.Record{MemberName: "Carol", Designations: "CPA, CA", Employer: "Shop", EmployerCity: "Kingston"}
	if len(out.Records) != 1 || out.Records[0] != want {
		t.Fatalf("unexpected second page: %+v", out.Records)
	}

	if out = ctrl.Advance(ctx, out.Records); out.Reason != domain.ReasonNextDisabled {
		t.Fatalf("expected disabled control, got %q", out.Reason)
	}
}
