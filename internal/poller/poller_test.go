package poller

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakePrinter collects everything written to the "printer" side of a pipe.
type fakePrinter struct {
	mu       sync.Mutex
	payloads []string
	failDial bool
}

func (f *fakePrinter) dial(addr string) (net.Conn, error) {
	if f.failDial {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	go func() {
		buf := make([]byte, 64*1024)
		n, _ := server.Read(buf)
		f.mu.Lock()
		f.payloads = append(f.payloads, string(buf[:n]))
		f.mu.Unlock()
		server.Close()
	}()
	return client, nil
}

func (f *fakePrinter) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.payloads...)
}

// dispatchServer mimics the print dispatch API: one job per queue fetch,
// removed from the queue only on ack.
type dispatchServer struct {
	mu     sync.Mutex
	queue  []Job
	acked  []uint
	key    string
	server *httptest.Server
}

func newDispatchServer(key string, jobs ...Job) *dispatchServer {
	d := &dispatchServer{queue: jobs, key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/print-queue", func(w http.ResponseWriter, r *http.Request) {
		if key != "" && r.Header.Get("X-Print-Key") != key {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Forbidden"})
			return
		}
		d.mu.Lock()
		out := []Job{}
		if len(d.queue) > 0 {
			out = append(out, d.queue[0])
		}
		d.mu.Unlock()
		json.NewEncoder(w).Encode(map[string][]Job{"jobs": out})
	})
	mux.HandleFunc("/print-complete", func(w http.ResponseWriter, r *http.Request) {
		if key != "" && r.Header.Get("X-Print-Key") != key {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var body struct {
			ID uint `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		d.mu.Lock()
		d.acked = append(d.acked, body.ID)
		if len(d.queue) > 0 && d.queue[0].ID == body.ID {
			d.queue = d.queue[1:]
		}
		d.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	d.server = httptest.NewServer(mux)
	return d
}

func (d *dispatchServer) ackedIDs() []uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint(nil), d.acked...)
}

func (d *dispatchServer) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func newTestPoller(baseURL, key string, printer *fakePrinter) *Poller {
	p := New(Config{BaseURL: baseURL, PrintKey: key, PrinterAddr: "printer:9100", Interval: time.Hour})
	p.dial = printer.dial
	return p
}

func TestPollOncePrintsAndAcks(t *testing.T) {
	dispatch := newDispatchServer("secret", Job{ID: 7, TSPL: "SIZE 50 mm, 21 mm\nPRINT 1,1\n"})
	defer dispatch.server.Close()
	printer := &fakePrinter{}

	p := newTestPoller(dispatch.server.URL, "secret", printer)
	if err := p.PollOnce(); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	got := printer.received()
	if len(got) != 1 || got[0] != "SIZE 50 mm, 21 mm\nPRINT 1,1\n" {
		t.Errorf("printer received %v", got)
	}
	if acked := dispatch.ackedIDs(); len(acked) != 1 || acked[0] != 7 {
		t.Errorf("expected ack for job 7, got %v", acked)
	}
}

func TestPollOnceEmptyQueueIsNotAnError(t *testing.T) {
	dispatch := newDispatchServer("secret")
	defer dispatch.server.Close()
	printer := &fakePrinter{}

	p := newTestPoller(dispatch.server.URL, "secret", printer)
	if err := p.PollOnce(); err != nil {
		t.Fatalf("empty queue must not error: %v", err)
	}
	if len(printer.received()) != 0 {
		t.Error("nothing should have been printed")
	}
}

func TestPollOnceLeavesJobPendingWhenPrinterDown(t *testing.T) {
	dispatch := newDispatchServer("secret", Job{ID: 3, TSPL: "CLS\n"})
	defer dispatch.server.Close()
	printer := &fakePrinter{failDial: true}

	p := newTestPoller(dispatch.server.URL, "secret", printer)
	if err := p.PollOnce(); err == nil {
		t.Fatal("expected an error when the printer is unreachable")
	}
	if len(dispatch.ackedIDs()) != 0 {
		t.Error("job must not be acked when printing failed")
	}
	if dispatch.pending() != 1 {
		t.Error("job must stay pending for the next poll")
	}

	// Printer comes back: the same job is re-fetched and completes.
	printer.failDial = false
	if err := p.PollOnce(); err != nil {
		t.Fatalf("recovery poll failed: %v", err)
	}
	if acked := dispatch.ackedIDs(); len(acked) != 1 || acked[0] != 3 {
		t.Errorf("expected ack for job 3 after recovery, got %v", acked)
	}
}

func TestPollOnceWrongKeyIsRejected(t *testing.T) {
	dispatch := newDispatchServer("secret", Job{ID: 1, TSPL: "CLS\n"})
	defer dispatch.server.Close()
	printer := &fakePrinter{}

	p := newTestPoller(dispatch.server.URL, "wrong", printer)
	if err := p.PollOnce(); err == nil {
		t.Fatal("expected an error on key mismatch")
	}
	if len(printer.received()) != 0 {
		t.Error("nothing should reach the printer without a valid key")
	}
}

func TestStartStop(t *testing.T) {
	dispatch := newDispatchServer("")
	defer dispatch.server.Close()
	printer := &fakePrinter{}

	p := newTestPoller(dispatch.server.URL, "", printer)
	if err := p.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := p.Start(); err == nil {
		t.Error("second start should fail")
	}
	p.Stop()
}
