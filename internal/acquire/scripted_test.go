package acquire

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VisTechProjects/Toronto-Parking-Pass-Buyer/internal/profile"
)

// writeDriverScript creates a shell stand-in for the browser automation
// command, dispatching on the phase argument.
func writeDriverScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("driver script test requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "driver.sh")
	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func scriptedTestDriver(command string) *ScriptedDriver {
	return NewScriptedDriver(command, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func scriptedTestRequest() Request {
	return Request{
		Vehicle: profile.Vehicle{Plate: "CSEB187"},
		Card:    profile.Card{Holder: "A Person", Number: "4111111111111111", Expiry: "01/30", CVV: "123"},
		Address: profile.Address{Initials: "A", Surname: "Person", StreetNumber: "1", StreetName: "Main St"},
	}
}

func TestScriptedDriverStartMapsPermitExists(t *testing.T) {
	script := writeDriverScript(t, `
case "$1" in
  start) exit 10 ;;
esac
exit 0
`)
	d := scriptedTestDriver(script)

	err := d.Start(context.Background(), scriptedTestRequest())
	assert.True(t, errors.Is(err, ErrPermitExists))
}

func TestScriptedDriverCheckSpaceMapsUnavailable(t *testing.T) {
	script := writeDriverScript(t, `
case "$1" in
  check-space) exit 11 ;;
esac
exit 0
`)
	d := scriptedTestDriver(script)

	require.NoError(t, d.Start(context.Background(), scriptedTestRequest()))
	err := d.CheckSpace(context.Background())
	assert.True(t, errors.Is(err, ErrSpaceUnavailable))
}

func TestScriptedDriverDeclinedCarriesScreenshotAndReason(t *testing.T) {
	script := writeDriverScript(t, `
case "$1" in
  submit-payment)
    echo "/tmp/declined.png"
    echo "do not honor" >&2
    exit 12
    ;;
esac
exit 0
`)
	d := scriptedTestDriver(script)

	err := d.SubmitPayment(context.Background(), scriptedTestRequest())
	var declined *DeclinedError
	require.True(t, errors.As(err, &declined))
	assert.Equal(t, "do not honor", declined.Reason)
	assert.Equal(t, "/tmp/declined.png", declined.Screenshot)
}

func TestScriptedDriverGenericFailure(t *testing.T) {
	script := writeDriverScript(t, `
echo "element not found" >&2
exit 1
`)
	d := scriptedTestDriver(script)

	err := d.CheckSpace(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermitExists)
	assert.NotErrorIs(t, err, ErrSpaceUnavailable)
	assert.Contains(t, err.Error(), "element not found")
}

func TestScriptedDriverFetchReceiptReturnsPrintedPath(t *testing.T) {
	script := writeDriverScript(t, `
case "$1" in
  fetch-receipt) echo "/downloads/Temporary Parking Permit.pdf" ;;
esac
exit 0
`)
	d := scriptedTestDriver(script)

	path, err := d.FetchReceipt(context.Background(), "CSEB187")
	require.NoError(t, err)
	assert.Equal(t, "/downloads/Temporary Parking Permit.pdf", path)
}

func TestScriptedDriverFetchReceiptRequiresPath(t *testing.T) {
	script := writeDriverScript(t, `exit 0`)
	d := scriptedTestDriver(script)

	_, err := d.FetchReceipt(context.Background(), "CSEB187")
	assert.Error(t, err)
}

func TestScriptedDriverPaymentReadsCardFromStdin(t *testing.T) {
	script := writeDriverScript(t, `
case "$1" in
  submit-payment)
    read number
    read expiry
    read cvv
    [ "$number" = "4111111111111111" ] || exit 1
    [ "$expiry" = "01/30" ] || exit 1
    [ "$cvv" = "123" ] || exit 1
    ;;
esac
exit 0
`)
	d := scriptedTestDriver(script)

	assert.NoError(t, d.SubmitPayment(context.Background(), scriptedTestRequest()))
}
