package toolkit

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"cudaconf/internal/fault"
	"cudaconf/internal/version"
)

// recorder builds artifacts whose materializers log the order they run in.
type recorder struct {
	attempts []string
}

func (r *recorder) artifact(v string, dir string, err error) Artifact {
	return Artifact{
		Version: version.MustParse(v),
		Materialize: func(context.Context) (string, error) {
			r.attempts = append(r.attempts, v)
			return dir, err
		},
	}
}

func TestConstraint_Allows(t *testing.T) {
	tests := []struct {
		name string
		c    Constraint
		v    string
		want bool
	}{
		{"driver bound equal", CompatibleWith(version.MustParse("10.1")), "10.1", true},
		{"driver bound lower", CompatibleWith(version.MustParse("10.1")), "10.0", true},
		{"driver bound higher", CompatibleWith(version.MustParse("10.1")), "10.2", false},
		{"driver bound ignores patch", CompatibleWith(version.MustParse("11.8")), "11.8.89", true},
		{"pin minor", Exactly(version.MustParse("11.8")), "11.8.0", true},
		{"pin other minor", Exactly(version.MustParse("11.8")), "11.7", false},
		{"pin patch", Exactly(version.MustParse("11.8.89")), "11.8.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Allows(version.MustParse(tt.v)); got != tt.want {
				t.Errorf("%s Allows(%s) = %v, want %v", tt.c, tt.v, got, tt.want)
			}
		})
	}
}

func TestArtifactResolver_FallbackOrder(t *testing.T) {
	requirePOSIX(t)

	good := t.TempDir()
	tree{layout: LayoutArtifact, version: "10.0"}.build(t, good)

	rec := &recorder{}
	artifacts := []Artifact{
		rec.artifact("10.0", good, nil),
		rec.artifact("10.2", good, nil),
		rec.artifact("10.1", "", errors.New("connection reset")),
	}

	r := NewArtifactResolver(testLogger(&bytes.Buffer{}), artifacts, linux, fileQuerier{})
	desc, err := r.Resolve(context.Background(), CompatibleWith(version.MustParse("10.1")))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if want := []string{"10.1", "10.0"}; !reflect.DeepEqual(rec.attempts, want) {
		t.Errorf("attempts = %v, want %v", rec.attempts, want)
	}
	if desc.Version.String() != "10.0" || desc.Source != SourceArtifact {
		t.Errorf("Resolve() = %s/%s", desc.Version, desc.Source)
	}
	if p, _ := desc.Path(DeviceBitcode); p != filepath.Join(good, "share", "libdevice", "libdevice.10.bc") {
		t.Errorf("bitcode path = %q", p)
	}
}

func TestArtifactResolver_Exhausted(t *testing.T) {
	rec := &recorder{}
	artifacts := []Artifact{
		rec.artifact("11.8", "", errors.New("404")),
		rec.artifact("11.7", "", errors.New("checksum mismatch")),
	}

	r := NewArtifactResolver(testLogger(&bytes.Buffer{}), artifacts, linux, nil)
	_, err := r.Resolve(context.Background(), CompatibleWith(version.MustParse("12.0")))
	if !fault.Is(err, fault.NoCompatibleArtifact) {
		t.Fatalf("Resolve() error = %v, want NoCompatibleArtifact", err)
	}
	if want := []string{"11.8", "11.7"}; !reflect.DeepEqual(rec.attempts, want) {
		t.Errorf("attempts = %v, want %v (each version at most once)", rec.attempts, want)
	}
}

func TestArtifactResolver_UnknownPin(t *testing.T) {
	rec := &recorder{}
	artifacts := []Artifact{rec.artifact("10.2", "", nil), rec.artifact("11.0", "", nil)}

	r := NewArtifactResolver(testLogger(&bytes.Buffer{}), artifacts, linux, nil)
	_, err := r.Resolve(context.Background(), Exactly(version.MustParse("9.9")))
	if !fault.Is(err, fault.NoCompatibleArtifact) {
		t.Fatalf("Resolve() error = %v, want NoCompatibleArtifact", err)
	}
	if len(rec.attempts) != 0 {
		t.Errorf("no candidate should be materialized, got %v", rec.attempts)
	}
}

func TestArtifactResolver_MissingRequiredIsFatal(t *testing.T) {
	requirePOSIX(t)

	broken := t.TempDir()
	tree{layout: LayoutArtifact, version: "11.8", omit: map[Component]bool{StaticDevRT: true}}.build(t, broken)
	fallback := t.TempDir()
	tree{layout: LayoutArtifact, version: "11.7"}.build(t, fallback)

	rec := &recorder{}
	artifacts := []Artifact{rec.artifact("11.8", broken, nil), rec.artifact("11.7", fallback, nil)}

	r := NewArtifactResolver(testLogger(&bytes.Buffer{}), artifacts, linux, nil)
	_, err := r.Resolve(context.Background(), CompatibleWith(version.MustParse("11.8")))
	if !fault.Is(err, fault.MissingRequiredArtifact) {
		t.Fatalf("Resolve() error = %v, want MissingRequiredArtifact", err)
	}
	if len(rec.attempts) != 1 {
		t.Errorf("a broken artifact must not fall back, attempts = %v", rec.attempts)
	}
}

func TestArtifactResolver_OptionalMissing(t *testing.T) {
	requirePOSIX(t)

	dir := t.TempDir()
	tree{layout: LayoutArtifact, version: "12.2", omit: map[Component]bool{CUPTI: true, NVTX: true}}.build(t, dir)

	rec := &recorder{}
	r := NewArtifactResolver(testLogger(&bytes.Buffer{}), []Artifact{rec.artifact("12.2", dir, nil)}, linux, nil)
	desc, err := r.Resolve(context.Background(), Exactly(version.MustParse("12.2")))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(desc.Warnings) != 2 {
		t.Errorf("warnings = %v, want cupti and nvtx", desc.Warnings)
	}
	if _, ok := desc.Path(CUPTI); ok {
		t.Error("cupti should be absent")
	}
}

func TestArtifactResolver_VersionMismatch(t *testing.T) {
	requirePOSIX(t)

	dir := t.TempDir()
	// The bundle claims 11.8 but its binaries report 11.7.
	tree{layout: LayoutArtifact, version: "11.7"}.build(t, dir)

	rec := &recorder{}
	r := NewArtifactResolver(testLogger(&bytes.Buffer{}), []Artifact{rec.artifact("11.8", dir, nil)}, linux, fileQuerier{})
	_, err := r.Resolve(context.Background(), CompatibleWith(version.MustParse("12.0")))
	if !fault.Is(err, fault.VersionMismatch) {
		t.Errorf("Resolve() error = %v, want VersionMismatch", err)
	}
}

func TestArtifactResolver_Cancelled(t *testing.T) {
	rec := &recorder{}
	r := NewArtifactResolver(testLogger(&bytes.Buffer{}), []Artifact{rec.artifact("11.8", "", nil)}, linux, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, CompatibleWith(version.MustParse("12.0")))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want context.Canceled", err)
	}
}
