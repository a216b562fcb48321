// Package notify sends fire-and-forget HTTP notifications for loop events.
// The primary use case is ntfy.sh, but any HTTP webhook works.
package notify

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

// Notifier posts plain-text HTTP notifications for selected loop events.
type Notifier struct {
	url      string
	title    string
	onResult bool
	onError  bool
	onDone   bool
	client   *http.Client

	wg sync.WaitGroup
}

// New creates a Notifier. projectName is used as the X-Title header; if empty,
// "reloop" is used instead.
func New(notifURL, projectName string, onResult, onError, onDone bool) *Notifier {
	title := "reloop"
	if projectName != "" {
		title = projectName
	}
	return &Notifier{
		url:      notifURL,
		title:    title,
		onResult: onResult,
		onError:  onError,
		onDone:   onDone,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Hook is a report.Sink.Hook-compatible function. It fires asynchronous
// POSTs for entries that match the configured notification flags.
func (n *Notifier) Hook(entry report.Entry) {
	switch entry.Kind {
	case report.LogResolved:
		if n.onResult {
			n.send(entry.Message)
		}
	case report.LogRejected:
		if n.onError {
			n.send(entry.Message)
		}
	case report.LogDone:
		if n.onDone {
			n.send(entry.Message)
		}
	}
}

// Wait blocks until every notification sent so far has been delivered or
// has failed.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) send(message string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.post(message)
	}()
}

// post sends a plain-text POST to the configured URL. Errors are silently
// discarded so notification failures never interrupt the loop.
func (n *Notifier) post(message string) {
	req, err := http.NewRequest(http.MethodPost, n.url, strings.NewReader(message))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Title", n.title)
	resp, err := n.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
