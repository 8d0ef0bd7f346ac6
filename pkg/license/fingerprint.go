package license

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// FingerprintProvider collects the machine's identity for license binding.
// Grounded on LOGIC/fingerprint/windows_fingerprint_provider.py, which
// shells out to Windows-only tools (wmic/reg); the portable provider below
// reads the Linux equivalents a desktop-class host exposes and degrades
// each component to "-" independently when unavailable, matching the
// original's per-field tolerance.
type FingerprintProvider interface {
	Collect(ctx context.Context) (MachineFingerprint, error)
}

// ProcessFingerprintProvider reads OS-exposed machine identifiers: on Linux
// /etc/machine-id and the DMI sysfs tree (/sys/class/dmi/id). Other
// operating systems get the same DMI sysfs reads only; there is no
// wmic/reg probe and no hostname fallback, so a component that cannot be
// read stays empty and renders as "-".
type ProcessFingerprintProvider struct{}

// NewProcessFingerprintProvider returns the default, OS-probing provider.
func NewProcessFingerprintProvider() *ProcessFingerprintProvider {
	return &ProcessFingerprintProvider{}
}

func (p *ProcessFingerprintProvider) Collect(ctx context.Context) (MachineFingerprint, error) {
	return MachineFingerprint{
		MachineGUID:     p.probe(ctx, p.machineGUID),
		BIOSUUID:        p.probe(ctx, p.biosUUID),
		BaseboardSerial: p.probe(ctx, p.baseboardSerial),
	}, nil
}

// probe runs collect with a per-component timeout; any error or timeout
// degrades to an empty string rather than failing fingerprint collection
// outright, matching the original provider's try/except-per-field shape.
func (p *ProcessFingerprintProvider) probe(parent context.Context, collect func(context.Context) (string, error)) string {
	ctx, cancel := context.WithTimeout(parent, probeTimeout)
	defer cancel()

	type result struct {
		val string
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := collect(ctx)
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return ""
	case r := <-done:
		if r.err != nil {
			return ""
		}
		return strings.TrimSpace(r.val)
	}
}

func (p *ProcessFingerprintProvider) machineGUID(ctx context.Context) (string, error) {
	if runtime.GOOS == "linux" {
		if b, err := os.ReadFile("/etc/machine-id"); err == nil {
			return string(b), nil
		}
	}
	return readDMI(ctx, "product_uuid")
}

func (p *ProcessFingerprintProvider) biosUUID(ctx context.Context) (string, error) {
	return readDMI(ctx, "product_uuid")
}

func (p *ProcessFingerprintProvider) baseboardSerial(ctx context.Context) (string, error) {
	return readDMI(ctx, "board_serial")
}

func readDMI(ctx context.Context, field string) (string, error) {
	path := "/sys/class/dmi/id/" + field
	if b, err := os.ReadFile(path); err == nil {
		return string(b), nil
	}
	out, err := exec.CommandContext(ctx, "cat", path).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// HashFingerprint returns the "hex:"-prefixed SHA-256 of the fingerprint's
// canonical string, the form stored in AllowedFingerprints entries and
// compared at verification time (spec §4.5).
func HashFingerprint(f MachineFingerprint) string {
	sum := sha256.Sum256([]byte(f.Canonical()))
	return "hex:" + hex.EncodeToString(sum[:])
}
