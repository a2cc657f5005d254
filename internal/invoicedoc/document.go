package invoicedoc

import (
	"bytes"
	"errors"
	"html/template"
	"regexp"
	"strings"

	"labdesk/internal/models"
)

var bodyClose = regexp.MustCompile(`(?i)</body\s*>`)

var (
	ErrMissingInvoiceID = errors.New("invoicedoc: invoice has no identifier")
	ErrNotHTML          = errors.New("invoicedoc: document is not HTML")
)

// Placeholder is shown in a print window while the document is fetched.
const Placeholder = `<html><head><title>Generating Invoice...</title></head>` +
	`<body style="font-family:sans-serif;display:flex;align-items:center;justify-content:center;height:100vh;margin:0;">` +
	`<div style="text-align:center;"><h2>Generating Invoice...</h2><p>Please wait a moment.</p></div></body></html>`

// ContainerSelector marks the printable region of an invoice document.
const ContainerSelector = ".invoice-container"

// DocumentKey picks the identifier used to fetch an invoice document: the
// human-readable invoice id, falling back to the internal id.
func DocumentKey(inv *models.Invoice) (string, error) {
	if inv == nil {
		return "", ErrMissingInvoiceID
	}
	if k := strings.TrimSpace(inv.InvoiceIDs); k != "" {
		return k, nil
	}
	if k := strings.TrimSpace(inv.ID); k != "" {
		return k, nil
	}
	return "", ErrMissingInvoiceID
}

// IsHTMLDocument reports whether the server returned a full HTML document.
func IsHTMLDocument(doc string) bool {
	return strings.Contains(strings.ToLower(doc), "<!doctype html")
}

// Filename is the name a downloaded invoice PDF is saved under.
func Filename(key string) string {
	return "invoice-" + key + ".pdf"
}

var downloadControl = template.Must(template.New("download").Parse(`
<div style="position:fixed;top:20px;right:20px;z-index:10000;">
  <button id="downloadInvoiceBtn" type="button" style="background:#2563eb;color:#fff;border:none;padding:12px 24px;border-radius:8px;font-size:16px;font-weight:600;cursor:pointer;box-shadow:0 4px 6px rgba(0,0,0,0.1);">📥 Download Document</button>
</div>
<script>
(function () {
  var btn = document.getElementById('downloadInvoiceBtn');
  var label = btn.textContent;
  function notify(message) {
    if (window.opener) {
      window.opener.postMessage({type: 'labdesk:notice', level: 'error', message: message}, window.location.origin);
    }
  }
  btn.addEventListener('click', async function () {
    btn.disabled = true;
    btn.textContent = '⏳ Generating PDF...';
    try {
      var resp = await fetch({{.URL}}, {credentials: 'same-origin'});
      if (!resp.ok) {
        throw new Error((await resp.text()) || resp.statusText);
      }
      var blob = await resp.blob();
      var link = document.createElement('a');
      link.href = URL.createObjectURL(blob);
      link.download = {{.Filename}};
      document.body.appendChild(link);
      link.click();
      link.remove();
      URL.revokeObjectURL(link.href);
      btn.textContent = '✅ Downloaded!';
      setTimeout(function () {
        btn.textContent = label;
        btn.disabled = false;
      }, 2000);
    } catch (err) {
      btn.textContent = '❌ Error - Try Again';
      btn.disabled = false;
      notify('Failed to download PDF: ' + err.message);
    }
  });
})();
</script>
`))

// InjectDownloadControl adds the "Download Document" button to doc. The
// button fetches pdfURL only when clicked and saves the result under the
// invoice's file name.
func InjectDownloadControl(doc, key, pdfURL string) (string, error) {
	var buf bytes.Buffer
	err := downloadControl.Execute(&buf, struct {
		URL      string
		Filename string
	}{pdfURL, Filename(key)})
	if err != nil {
		return "", err
	}

	m := bodyClose.FindAllStringIndex(doc, -1)
	if len(m) == 0 {
		return doc + buf.String(), nil
	}
	i := m[len(m)-1][0]
	return doc[:i] + buf.String() + doc[i:], nil
}
