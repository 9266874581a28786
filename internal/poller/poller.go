// Package poller bridges the cloud print queue to a raw TCP label printer on
// the kitchen LAN. It polls for pending jobs, pushes the payload to the
// printer's raw port, and acks only after the bytes were written. A job that
// fails anywhere before the ack is re-fetched on the next poll.
package poller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"
)

// DefaultInterval is how often the poller asks for work.
const DefaultInterval = 2 * time.Second

// Job is one dispatched print job as served by the print dispatch API.
type Job struct {
	ID   uint   `json:"id"`
	TSPL string `json:"tspl"`
}

// Poller polls a print dispatch API and forwards jobs to a raw printer port.
type Poller struct {
	baseURL     string
	printKey    string
	printerAddr string
	interval    time.Duration

	client *http.Client

	// dial is swappable for tests.
	dial func(addr string) (net.Conn, error)

	stopChan chan struct{}
	running  bool
}

// Config holds poller settings.
type Config struct {
	BaseURL     string
	PrintKey    string
	PrinterAddr string
	Interval    time.Duration
}

// New creates a print poller.
func New(cfg Config) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		baseURL:     cfg.BaseURL,
		printKey:    cfg.PrintKey,
		printerAddr: cfg.PrinterAddr,
		interval:    interval,
		client:      &http.Client{Timeout: 10 * time.Second},
		dial: func(addr string) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, 5*time.Second)
		},
		stopChan: make(chan struct{}),
	}
}

// Start begins the poll loop in a background goroutine.
func (p *Poller) Start() error {
	if p.running {
		return fmt.Errorf("poller already running")
	}
	p.running = true

	log.Printf("🖨️ Print poller started (server: %s, printer: %s, every %v)", p.baseURL, p.printerAddr, p.interval)

	go p.loop()
	return nil
}

// Stop stops the poll loop.
func (p *Poller) Stop() {
	if !p.running {
		return
	}
	p.running = false
	close(p.stopChan)
	log.Println("🖨️ Print poller stopped")
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.PollOnce(); err != nil {
				log.Printf("⚠️ Print poll failed: %v", err)
			}
		case <-p.stopChan:
			return
		}
	}
}

// PollOnce fetches at most one pending job and prints it. No pending work is
// not an error.
func (p *Poller) PollOnce() error {
	jobs, err := p.fetchJobs()
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if err := p.sendToPrinter(job.TSPL); err != nil {
			// Leave the job pending; it comes back on the next poll.
			return fmt.Errorf("send job #%d to printer: %w", job.ID, err)
		}
		if err := p.ackJob(job.ID); err != nil {
			// Printed but unacked: the job reprints. At-least-once is the
			// contract; a duplicate sticker beats a missing one.
			return fmt.Errorf("ack job #%d: %w", job.ID, err)
		}
		log.Printf("🖨️ Printed job #%d (%d bytes)", job.ID, len(job.TSPL))
	}
	return nil
}

func (p *Poller) fetchJobs() ([]Job, error) {
	req, err := http.NewRequest(http.MethodGet, p.baseURL+"/print-queue", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Print-Key", p.printKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("print-queue returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Jobs []Job `json:"jobs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode print-queue response: %w", err)
	}
	return payload.Jobs, nil
}

// sendToPrinter writes the raw payload to the printer's TCP port.
func (p *Poller) sendToPrinter(payload string) error {
	conn, err := p.dial(p.printerAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := conn.Write([]byte(payload)); err != nil {
		return err
	}
	return nil
}

func (p *Poller) ackJob(id uint) error {
	body, _ := json.Marshal(map[string]uint{"id": id})
	req, err := http.NewRequest(http.MethodPost, p.baseURL+"/print-complete", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Print-Key", p.printKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("print-complete returned %d", resp.StatusCode)
	}
	return nil
}
