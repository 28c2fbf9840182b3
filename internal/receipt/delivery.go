package receipt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// Port is one way of getting raw ESC/POS bytes to a printer.
type Port interface {
	Send(ctx context.Context, data []byte) error
}

// HTTPPort posts print jobs to a network printer bridge at
// http://{ip}:{port}/print as {"data": "<base64>"}.
type HTTPPort struct {
	host   string
	port   int
	client *http.Client
}

const DefaultPrinterPort = 9100

func NewHTTPPort(host string, port int) *HTTPPort {
	if port <= 0 {
		port = DefaultPrinterPort
	}
	return &HTTPPort{
		host:   host,
		port:   port,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type printRequest struct {
	Data string `json:"data"`
}

func (p *HTTPPort) Send(ctx context.Context, data []byte) error {
	body, err := json.Marshal(printRequest{Data: base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("http://%s:%d/print", p.host, p.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("printer bridge returned %s", resp.Status)
	}
	return nil
}

// Vendor IDs of thermal printer chipsets we will attach to over USB.
var recognizedVendorIDs = map[uint16]string{
	0x0416: "Winbond",
	0x04b8: "Epson",
	0x0519: "Star Micronics",
	0x1504: "Bixolon",
}

// RecognizedVendor reports whether a USB vendor ID belongs to a supported
// receipt printer family.
func RecognizedVendor(id uint16) (string, bool) {
	name, ok := recognizedVendorIDs[id]
	return name, ok
}

// BulkWriter is the raw USB endpoint abstraction, satisfied by whatever
// transfer layer the deployment links in.
type BulkWriter interface {
	WriteBulk(data []byte) (int, error)
}

// USBPort writes receipts over a bulk-out endpoint of a recognized printer.
type USBPort struct {
	vendorID uint16
	w        BulkWriter
}

func NewUSBPort(vendorID uint16, w BulkWriter) (*USBPort, error) {
	if _, ok := RecognizedVendor(vendorID); !ok {
		return nil, fmt.Errorf("unsupported printer vendor id 0x%04x", vendorID)
	}
	return &USBPort{vendorID: vendorID, w: w}, nil
}

func (p *USBPort) Send(_ context.Context, data []byte) error {
	for len(data) > 0 {
		n, err := p.w.WriteBulk(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

type job struct {
	invoiceNo string
	data      []byte
}

// Dispatcher delivers receipts off the checkout path. Enqueue never blocks
// and never fails the sale: a full queue or an exhausted retry budget is a
// logged warning, nothing more.
type Dispatcher struct {
	port     Port
	jobs     chan job
	retries  int
	backoff  time.Duration
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewDispatcher(port Port, queueDepth, retries int, backoff time.Duration) *Dispatcher {
	if queueDepth <= 0 {
		queueDepth = 32
	}
	if retries <= 0 {
		retries = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	d := &Dispatcher{
		port:    port,
		jobs:    make(chan job, queueDepth),
		retries: retries,
		backoff: backoff,
		stopped: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Enqueue hands a rendered receipt to the delivery goroutine.
func (d *Dispatcher) Enqueue(invoiceNo string, data []byte) {
	select {
	case d.jobs <- job{invoiceNo: invoiceNo, data: data}:
	default:
		log.Printf("[receipt] WARN: print queue full, dropping receipt for %s", invoiceNo)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopped:
			return
		case j := <-d.jobs:
			d.deliver(j)
		}
	}
}

func (d *Dispatcher) deliver(j job) {
	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		lastErr = d.port.Send(ctx, j.data)
		cancel()
		if lastErr == nil {
			return
		}
		select {
		case <-d.stopped:
			return
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}
	// The sale stays committed regardless; paper can be reprinted.
	log.Printf("[receipt] WARN: delivery failed for %s after %d attempts: %v", j.invoiceNo, d.retries, lastErr)
}

// Close stops accepting work and waits for the in-flight job to settle.
func (d *Dispatcher) Close() error {
	d.stopOnce.Do(func() { close(d.stopped) })
	d.wg.Wait()
	return nil
}
