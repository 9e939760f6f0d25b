package toolchain

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cudaconf/internal/config"
	"cudaconf/internal/fault"
	"cudaconf/internal/fetch"
	"cudaconf/internal/gpu"
	"cudaconf/internal/logging"
	"cudaconf/internal/store"
	"cudaconf/internal/support"
	"cudaconf/internal/toolkit"
	"cudaconf/internal/version"
)

func set(vs ...string) version.Set {
	out := make([]version.Version, len(vs))
	for i, v := range vs {
		out[i] = version.MustParse(v)
	}
	return version.NewSet(out...)
}

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter(logging.LevelDebug, logging.FormatJSON, &bytes.Buffer{})
}

type fakeBackend struct {
	info support.BackendInfo
	err  error
}

func (f fakeBackend) Detect(context.Context) (support.BackendInfo, error) { return f.info, f.err }

type fakeDriver struct {
	info gpu.DriverInfo
	err  error
}

func (f fakeDriver) Detect(context.Context) (gpu.DriverInfo, error) { return f.info, f.err }

type fakeArtifacts struct {
	desc        toolkit.Descriptor
	err         error
	constraints []toolkit.Constraint
}

func (f *fakeArtifacts) Resolve(_ context.Context, c toolkit.Constraint) (toolkit.Descriptor, error) {
	f.constraints = append(f.constraints, c)
	return f.desc, f.err
}

type fakeLocal struct {
	desc  toolkit.Descriptor
	err   error
	scans int
}

func (f *fakeLocal) Scan(context.Context) (toolkit.Descriptor, error) {
	f.scans++
	return f.desc, f.err
}

// fixedSupport returns preset matrices regardless of versions.
type fixedSupport struct {
	backend, cuda support.Matrix
}

func (f fixedSupport) Backend(support.BackendInfo) (support.Matrix, error) { return f.backend, nil }
func (f fixedSupport) CUDA(version.Version, version.Version) (support.Matrix, error) {
	return f.cuda, nil
}

func descriptor(v string, source toolkit.Source) toolkit.Descriptor {
	root := "/opt/cuda-" + v
	return toolkit.Descriptor{
		Version: version.MustParse(v),
		Source:  source,
		Roots:   []string{root},
		Paths: map[toolkit.Component]string{
			toolkit.Disassembler:  root + "/bin/cuobjdump",
			toolkit.StaticDevRT:   root + "/lib64/libcudadevrt.a",
			toolkit.DeviceBitcode: root + "/nvvm/libdevice/libdevice.10.bc",
		},
	}
}

func baseDeps() (Deps, *fakeArtifacts, *fakeLocal) {
	artifacts := &fakeArtifacts{desc: descriptor("11.8", toolkit.SourceArtifact)}
	local := &fakeLocal{desc: descriptor("11.4", toolkit.SourceLocal)}
	return Deps{
		Backend:   fakeBackend{info: support.BackendInfo{Version: version.MustParse("17.0.6"), Targets: []string{"NVPTX", "X86"}}},
		Driver:    fakeDriver{info: gpu.DriverInfo{CUDA: version.MustParse("12.2"), Source: "nvml"}},
		Artifacts: artifacts,
		Local:     local,
	}, artifacts, local
}

func TestRun_IntersectsMatrices(t *testing.T) {
	deps, _, _ := baseDeps()
	deps.Support = fixedSupport{
		backend: support.Matrix{Targets: set("3.5", "5.0", "7.0"), ISAs: set("6.0", "7.0")},
		cuda:    support.Matrix{Targets: set("5.0", "7.0", "7.5"), ISAs: set("7.0", "7.8")},
	}

	r, err := New(deps, Options{UseArtifacts: true}, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !r.Matrix.Targets.Equal(set("5.0", "7.0")) {
		t.Errorf("targets = %s, want {5.0, 7.0}", r.Matrix.Targets)
	}
	if !r.Matrix.ISAs.Equal(set("7.0")) {
		t.Errorf("isas = %s, want {7.0}", r.Matrix.ISAs)
	}
	if !r.BackendMatrix.Targets.Equal(set("3.5", "5.0", "7.0")) {
		t.Errorf("per-source backend matrix not retained: %s", r.BackendMatrix.Targets)
	}
}

func TestRun_RealTables(t *testing.T) {
	deps, artifacts, _ := baseDeps()

	r, err := New(deps, Options{UseArtifacts: true, Minimum: version.MustParse("10.1")}, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(artifacts.constraints) != 1 || artifacts.constraints[0].IsExact() {
		t.Fatalf("constraints = %v, want one driver-derived constraint", artifacts.constraints)
	}
	if !artifacts.constraints[0].Allows(version.MustParse("12.2")) || artifacts.constraints[0].Allows(version.MustParse("12.3")) {
		t.Errorf("constraint %s should be bounded by driver 12.2", artifacts.constraints[0])
	}

	if r.Toolkit.Version.String() != "11.8" || r.Toolkit.Source != toolkit.SourceArtifact {
		t.Errorf("toolkit = %s/%s", r.Toolkit.Version, r.Toolkit.Source)
	}
	if !r.Matrix.Targets.Contains(version.MustParse("9.0")) || r.Matrix.Targets.Contains(version.MustParse("3.5")) {
		t.Errorf("targets = %s", r.Matrix.Targets)
	}
	if maxISA, _ := r.Matrix.ISAs.Max(); maxISA != version.MustParse("7.8") {
		t.Errorf("max ISA = %s, want 7.8", maxISA)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings)
	}
}

func TestRun_PinnedUnknownArtifact(t *testing.T) {
	deps, _, local := baseDeps()
	known := []toolkit.Artifact{
		{Version: version.MustParse("10.2"), Materialize: func(context.Context) (string, error) { return "", errors.New("unused") }},
		{Version: version.MustParse("11.0"), Materialize: func(context.Context) (string, error) { return "", errors.New("unused") }},
	}
	deps.Artifacts = toolkit.NewArtifactResolver(testLogger(), known, toolkit.Naming{GOOS: "linux"}, nil)

	_, err := New(deps, Options{UseArtifacts: true, Pin: version.MustParse("9.9")}, testLogger()).Run(context.Background())
	if !fault.Is(err, fault.NoCompatibleArtifact) {
		t.Fatalf("Run() error = %v, want NoCompatibleArtifact", err)
	}
	if local.scans != 0 {
		t.Error("a pinned version must not fall back to the local scan")
	}
}

func TestRun_DriverConstraintFallsBackToLocal(t *testing.T) {
	deps, artifacts, local := baseDeps()
	artifacts.err = fault.New(fault.NoCompatibleArtifact, "none")

	r, err := New(deps, Options{UseArtifacts: true}, testLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if local.scans != 1 || r.Toolkit.Source != toolkit.SourceLocal {
		t.Errorf("expected the local toolkit, got %s after %d scans", r.Toolkit.Source, local.scans)
	}
	if len(r.Warnings) == 0 || r.Warnings[0].Code != WarnArtifactFallback {
		t.Errorf("warnings = %v, want %s first", r.Warnings, WarnArtifactFallback)
	}
}

func TestRun_ArtifactFatalErrorsDoNotFallBack(t *testing.T) {
	deps, artifacts, local := baseDeps()
	artifacts.err = fault.New(fault.MissingRequiredArtifact, "no libcudadevrt.a")

	_, err := New(deps, Options{UseArtifacts: true}, testLogger()).Run(context.Background())
	if !fault.Is(err, fault.MissingRequiredArtifact) {
		t.Errorf("Run() error = %v, want MissingRequiredArtifact", err)
	}
	if local.scans != 0 {
		t.Error("only NoCompatibleArtifact may fall back")
	}
}

func TestRun_ArtifactsDisabled(t *testing.T) {
	tests := []struct {
		name     string
		pin      string
		wantKind fault.Kind
	}{
		{"no pin", "", ""},
		{"matching pin", "11.4", ""},
		{"mismatched pin", "11.8", fault.VersionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, artifacts, _ := baseDeps()
			opts := Options{UseArtifacts: false}
			if tt.pin != "" {
				opts.Pin = version.MustParse(tt.pin)
			}

			r, err := New(deps, opts, testLogger()).Run(context.Background())
			if len(artifacts.constraints) != 0 {
				t.Error("artifacts must not be consulted when disabled")
			}
			if tt.wantKind != "" {
				if !fault.Is(err, tt.wantKind) {
					t.Errorf("Run() error = %v, want %s", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if r.Toolkit.Source != toolkit.SourceLocal {
				t.Errorf("source = %s", r.Toolkit.Source)
			}
		})
	}
}

func TestRun_PropagatesStageFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Deps)
		want   fault.Kind
	}{
		{
			name:   "no llvm",
			mutate: func(d *Deps) { d.Backend = fakeBackend{err: fault.New(fault.MissingDependency, "llvm-config")} },
			want:   fault.MissingDependency,
		},
		{
			name: "no nvptx",
			mutate: func(d *Deps) {
				d.Backend = fakeBackend{info: support.BackendInfo{Version: version.MustParse("15.0"), Targets: []string{"X86"}}}
			},
			want: fault.UnsupportedBackend,
		},
		{
			name:   "no driver",
			mutate: func(d *Deps) { d.Driver = fakeDriver{err: fault.New(fault.MissingDependency, "nvidia-smi")} },
			want:   fault.MissingDependency,
		},
		{
			name: "toolkit newer than driver",
			mutate: func(d *Deps) {
				d.Driver = fakeDriver{info: gpu.DriverInfo{CUDA: version.MustParse("11.0")}}
			},
			want: fault.IncompatibleToolkit,
		},
		{
			name: "old backend",
			mutate: func(d *Deps) {
				// LLVM 3.2 only knows targets the 12.2 driver has dropped.
				d.Backend = fakeBackend{info: support.BackendInfo{Version: version.MustParse("3.2"), Targets: []string{"NVPTX"}}}
			},
			want: fault.NoCompatibleTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _, _ := baseDeps()
			tt.mutate(&deps)
			_, err := New(deps, Options{UseArtifacts: true}, testLogger()).Run(context.Background())
			if !fault.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestCommit_Idempotent(t *testing.T) {
	deps, _, _ := baseDeps()
	p := New(deps, Options{UseArtifacts: true}, testLogger())
	st := store.New(filepath.Join(t.TempDir(), "toolchain.conf"), testLogger())

	outcome, r, err := p.Commit(context.Background(), st)
	if err != nil || outcome != store.OutcomeWritten {
		t.Fatalf("first Commit() = %s, %v", outcome, err)
	}

	persisted, _, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !persisted.Equal(r.Configuration()) {
		t.Errorf("persisted %+v, want %+v", persisted, r.Configuration())
	}

	outcome, _, err = p.Commit(context.Background(), st)
	if err != nil || outcome != store.OutcomeUnchanged {
		t.Errorf("second Commit() = %s, %v, want unchanged", outcome, err)
	}
}

func TestArtifacts_FromCatalogue(t *testing.T) {
	var got []fetch.Source
	m := materializerFunc(func(_ context.Context, src fetch.Source) (string, error) {
		got = append(got, src)
		return "/cache/" + src.Version.String(), nil
	})

	artifacts, err := Artifacts(m, []config.ArtifactEntry{
		{Version: "11.8", URL: "https://example.invalid/cuda-11.8.tar.zst", SHA256: "ab"},
		{Version: "12.2", URL: "https://example.invalid/cuda-12.2.tar.zst"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("len = %d", len(artifacts))
	}

	dir, err := artifacts[1].Materialize(context.Background())
	if err != nil || dir != "/cache/12.2" {
		t.Errorf("Materialize() = %q, %v", dir, err)
	}
	if len(got) != 1 || got[0].URL != "https://example.invalid/cuda-12.2.tar.zst" {
		t.Errorf("materializer saw %v", got)
	}

	if _, err := Artifacts(m, []config.ArtifactEntry{{Version: "eleven"}}); err == nil {
		t.Error("invalid catalogue version should fail")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Toolkit.Version = "11.8"

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !opts.UseArtifacts || opts.Pin != version.MustParse("11.8") || opts.Minimum != version.MustParse(config.DefaultMinimumToolkit) {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}
}

type materializerFunc func(ctx context.Context, src fetch.Source) (string, error)

func (f materializerFunc) Materialize(ctx context.Context, src fetch.Source) (string, error) {
	return f(ctx, src)
}
