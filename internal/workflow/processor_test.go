package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/acquire"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/notify"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/permit"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/profile"
	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/publish"
)

const sampleReceipt = `City of Toronto
Temporary Parking Permit

00435
Receipt Permit no.: T6146330

Plate no.: CSEB187
Valid from: Oct 20, 2025 at 1:08 AM
Valid to: Oct 21, 2025 at 1:08 AM
Amount paid: $10.53
`

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(path string) (string, error) { return f.text, f.err }

type fakePublisher struct {
	result    publish.Result
	published []permit.Normalized
}

func (f *fakePublisher) Publish(ctx context.Context, rec permit.Normalized) publish.Result {
	f.published = append(f.published, rec)
	return f.result
}

type fakeArchiver struct {
	dest   string
	err    error
	stored []string
}

func (f *fakeArchiver) Store(src string) (string, error) {
	f.stored = append(f.stored, src)
	return f.dest, f.err
}

type capturingNotifier struct {
	sent []notify.Notification
	err  error
}

func (c *capturingNotifier) Notify(ctx context.Context, n notify.Notification) error {
	c.sent = append(c.sent, n)
	return c.err
}

type processorHarness struct {
	extractor *fakeExtractor
	publisher *fakePublisher
	archiver  *fakeArchiver
	notifier  *capturingNotifier
	processor *Processor
}

func newHarness(text string) *processorHarness {
	h := &processorHarness{
		extractor: &fakeExtractor{text: text},
		publisher: &fakePublisher{result: publish.Result{Pushed: true}},
		archiver:  &fakeArchiver{dest: "/archive/2025/receipt.pdf"},
		notifier:  &capturingNotifier{},
	}
	h.processor = &Processor{
		Extractor: h.extractor,
		Publisher: h.publisher,
		Archiver:  h.archiver,
		Notifier:  h.notifier,
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h
}

func processorRequest() acquire.Request {
	return acquire.Request{
		Vehicle: profile.Vehicle{Plate: "CSEB187"},
		Card:    profile.Card{Name: "visa"},
	}
}

func TestProcessDocumentPublishesAndArchives(t *testing.T) {
	h := newHarness(sampleReceipt)

	code := h.processor.Process(context.Background(),
		Outcome{State: StateDocumentReady, DocumentPath: "/tmp/receipt.pdf"}, processorRequest())

	assert.Equal(t, ExitOK, code)
	require.Len(t, h.publisher.published, 1)
	rec := h.publisher.published[0]
	assert.Equal(t, "T6146330", rec.PermitNumber)
	assert.Equal(t, "CSEB187", rec.PlateNumber)
	assert.Equal(t, "Oct 20, 2025: 1:08", rec.ValidFrom)
	assert.Equal(t, "6146330", rec.BarcodeValue)

	assert.Equal(t, []string{"/tmp/receipt.pdf"}, h.archiver.stored)

	require.Len(t, h.notifier.sent, 1)
	n := h.notifier.sent[0]
	assert.Equal(t, notify.SeverityInfo, n.Severity)
	assert.Contains(t, n.Subject, "T6146330")
	assert.Equal(t, "/archive/2025/receipt.pdf", n.Details["archived"])
}

func TestProcessSkipPublishStillArchives(t *testing.T) {
	h := newHarness(sampleReceipt)
	h.processor.SkipPublish = true

	code := h.processor.Process(context.Background(),
		Outcome{State: StateDocumentReady, DocumentPath: "/tmp/receipt.pdf"}, processorRequest())

	assert.Equal(t, ExitOK, code)
	assert.Empty(t, h.publisher.published)
	assert.Equal(t, []string{"/tmp/receipt.pdf"}, h.archiver.stored)
}

func TestProcessIncompleteExtraction(t *testing.T) {
	// plate and dates present, permit number missing
	h := newHarness("Plate no.: CSEB187\nValid from: Oct 20, 2025 at 1:08 AM\nValid to: Oct 21, 2025 at 1:08 AM\n")

	code := h.processor.Process(context.Background(),
		Outcome{State: StateDocumentReady, DocumentPath: "/tmp/receipt.pdf"}, processorRequest())

	assert.Equal(t, ExitActionable, code)
	assert.Empty(t, h.publisher.published, "partial records are never published")
	assert.Empty(t, h.archiver.stored, "partial receipts stay where the operator can inspect them")

	require.Len(t, h.notifier.sent, 1)
	n := h.notifier.sent[0]
	assert.Equal(t, notify.SeverityAction, n.Severity)
	assert.Contains(t, n.Details["missing"], "permitNumber")
}

func TestProcessExtractionFault(t *testing.T) {
	h := newHarness("")
	h.extractor.err = errors.New("file corrupt")

	code := h.processor.Process(context.Background(),
		Outcome{State: StateDocumentReady, DocumentPath: "/tmp/receipt.pdf"}, processorRequest())

	assert.Equal(t, ExitFailed, code)
	assert.Empty(t, h.publisher.published)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, notify.SeverityFatal, h.notifier.sent[0].Severity)
}

func TestProcessPublishFailure(t *testing.T) {
	h := newHarness(sampleReceipt)
	h.publisher.result = publish.Result{Err: errors.New("push rejected"), Conflict: true}

	code := h.processor.Process(context.Background(),
		Outcome{State: StateDocumentReady, DocumentPath: "/tmp/receipt.pdf"}, processorRequest())

	assert.Equal(t, ExitFailed, code)
	assert.Empty(t, h.archiver.stored, "a failed publication keeps the receipt out of the archive")
	require.Len(t, h.notifier.sent, 1)
	n := h.notifier.sent[0]
	assert.Equal(t, notify.SeverityFatal, n.Severity)
	assert.Contains(t, n.Subject, "conflict")
}

func TestProcessDegradedDocumentReady(t *testing.T) {
	h := newHarness(sampleReceipt)

	code := h.processor.Process(context.Background(),
		Outcome{State: StateDocumentReady}, processorRequest())

	assert.Equal(t, ExitOK, code)
	assert.Empty(t, h.publisher.published)
	assert.Empty(t, h.archiver.stored)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, notify.SeverityInfo, h.notifier.sent[0].Severity)
}

func TestProcessAlreadyExistsIsSilent(t *testing.T) {
	h := newHarness(sampleReceipt)

	code := h.processor.Process(context.Background(),
		Outcome{State: StateAlreadyExists}, processorRequest())

	assert.Equal(t, ExitOK, code)
	assert.Empty(t, h.notifier.sent)
	assert.Empty(t, h.publisher.published)
}

func TestProcessDryRunStopIsSilent(t *testing.T) {
	h := newHarness(sampleReceipt)

	code := h.processor.Process(context.Background(),
		Outcome{State: StateDryRunStop}, processorRequest())

	assert.Equal(t, ExitOK, code)
	assert.Empty(t, h.notifier.sent)
}

func TestProcessDeclined(t *testing.T) {
	h := newHarness(sampleReceipt)

	code := h.processor.Process(context.Background(), Outcome{
		State:      StateDeclined,
		Reason:     "card declined",
		Screenshot: "/tmp/declined.png",
	}, processorRequest())

	assert.Equal(t, ExitActionable, code)
	require.Len(t, h.notifier.sent, 1)
	n := h.notifier.sent[0]
	assert.Equal(t, notify.SeverityAction, n.Severity)
	assert.Equal(t, "/tmp/declined.png", n.Screenshot)
	assert.Equal(t, "card declined", n.Details["reason"])
}

func TestProcessFailed(t *testing.T) {
	h := newHarness(sampleReceipt)

	code := h.processor.Process(context.Background(),
		Outcome{State: StateFailed, Reason: "space check: timeout"}, processorRequest())

	assert.Equal(t, ExitFailed, code)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, notify.SeverityFatal, h.notifier.sent[0].Severity)
}
