package convert

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-pdf-service/pkg/errors"
)

func existsIn(paths ...string) func(string) bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return func(p string) bool { return set[p] }
}

// fakeSoffice writes an executable shell script standing in for soffice
func fakeSoffice(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	p := filepath.Join(t.TempDir(), "soffice")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return p
}

// writesPDF mimics a successful conversion: it creates <outdir>/<input base>.pdf
const writesPDF = `out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "--outdir" ]; then out="$a"; fi
  prev="$a"
  last="$a"
done
base=$(basename "$last")
echo "fake pdf" > "$out/${base%.*}.pdf"`

func appCode(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Code
}

func TestDiscoverLibreOffice(t *testing.T) {
	tests := []struct {
		name string
		env  DiscoveryEnv
		want string
	}{
		{
			name: "override",
			env:  DiscoveryEnv{GOOS: "linux", Override: "/custom/soffice", Exists: existsIn("/custom/soffice", "/usr/bin/soffice")},
			want: "/custom/soffice",
		},
		{
			name: "path before defaults",
			env: DiscoveryEnv{
				GOOS:     "linux",
				PathDirs: []string{"/a", "", "/b"},
				Exists:   existsIn("/b/soffice", "/usr/bin/soffice"),
			},
			want: "/b/soffice",
		},
		{
			name: "libreoffice name on path",
			env:  DiscoveryEnv{GOOS: "linux", PathDirs: []string{"/a"}, Exists: existsIn("/a/libreoffice")},
			want: "/a/libreoffice",
		},
		{
			name: "explicit candidate",
			env:  DiscoveryEnv{GOOS: "linux", Candidates: []string{"/srv/lo/soffice"}, Exists: existsIn("/srv/lo/soffice", "/usr/bin/soffice")},
			want: "/srv/lo/soffice",
		},
		{
			name: "linux default location",
			env:  DiscoveryEnv{GOOS: "linux", Exists: existsIn("/usr/lib/libreoffice/program/soffice")},
			want: "/usr/lib/libreoffice/program/soffice",
		},
		{
			name: "darwin app bundle",
			env:  DiscoveryEnv{GOOS: "darwin", Exists: existsIn("/Applications/LibreOffice.app/Contents/MacOS/soffice")},
			want: "/Applications/LibreOffice.app/Contents/MacOS/soffice",
		},
		{
			name: "windows program files",
			env: DiscoveryEnv{
				GOOS:         "windows",
				ProgramFiles: []string{`D:\Apps\`},
				Exists:       existsIn(`D:\Apps\LibreOffice\program\soffice.exe`),
			},
			want: `D:\Apps\LibreOffice\program\soffice.exe`,
		},
		{
			name: "windows default program files",
			env:  DiscoveryEnv{GOOS: "windows", Exists: existsIn(`C:\Program Files (x86)\LibreOffice\program\soffice.exe`)},
			want: `C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
		},
		{
			name: "windows path entry",
			env:  DiscoveryEnv{GOOS: "windows", PathDirs: []string{`C:\LO\program`}, Exists: existsIn(`C:\LO\program\soffice.exe`)},
			want: `C:\LO\program\soffice.exe`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiscoverLibreOffice(tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscoverLibreOffice_NotFound(t *testing.T) {
	envs := map[string]DiscoveryEnv{
		"nothing installed": {GOOS: "linux", PathDirs: []string{"/a"}, Exists: existsIn()},
		"missing override":  {GOOS: "linux", Override: "/nope", Exists: existsIn("/usr/bin/soffice")},
		"no exists func":    {GOOS: "linux"},
	}
	for name, env := range envs {
		t.Run(name, func(t *testing.T) {
			_, err := DiscoverLibreOffice(env)
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestLibreOfficeArgs(t *testing.T) {
	args := LibreOfficeArgs("/in/statement.xlsx", "/out")
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "--headless")
	assert.Contains(t, joined, "--norestore")
	assert.Contains(t, joined, "--convert-to pdf:calc_pdf_Export")
	assert.Contains(t, joined, "--outdir /out")
	assert.Contains(t, joined, "-env:UserInstallation=file:///out/.lo-profile")
	assert.Equal(t, "/in/statement.xlsx", args[len(args)-1])

	doc := LibreOfficeArgs("/in/letter.docx", "/out")
	assert.Contains(t, strings.Join(doc, " "), "--convert-to pdf ")
}

func TestLibreOfficeStrategy_Success(t *testing.T) {
	script := fakeSoffice(t, writesPDF)
	outDir := t.TempDir()

	s := NewLibreOfficeStrategy(script, 10*time.Second)
	res := s.Convert(context.Background(), "/in/statement.xlsx", outDir)

	require.Equal(t, StatusSuccess, res.Status, "err: %v", res.Err)
	assert.Equal(t, filepath.Join(outDir, "statement.pdf"), res.Path)
}

func TestLibreOfficeStrategy_Timeout(t *testing.T) {
	script := fakeSoffice(t, "exec sleep 10")
	timeout := 200 * time.Millisecond

	s := NewLibreOfficeStrategy(script, timeout)
	start := time.Now()
	res := s.Convert(context.Background(), "/in/statement.xlsx", t.TempDir())
	elapsed := time.Since(start)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, errors.CodeTimeout, appCode(t, res.Err))
	appErr, _ := errors.AsAppError(res.Err)
	assert.Equal(t, errors.CategoryConversion, appErr.Category)
	assert.Less(t, elapsed, timeout+killGrace+time.Second)
}

func TestLibreOfficeStrategy_Failures(t *testing.T) {
	t.Run("non-zero exit keeps stderr", func(t *testing.T) {
		script := fakeSoffice(t, "echo 'source file could not be loaded' >&2\nexit 3")
		res := NewLibreOfficeStrategy(script, 10*time.Second).Convert(context.Background(), "/in/a.docx", t.TempDir())

		assert.Equal(t, StatusFailed, res.Status)
		assert.Equal(t, errors.CodeToolFailed, appCode(t, res.Err))
		appErr, _ := errors.AsAppError(res.Err)
		assert.Contains(t, appErr.Context["stderr"], "could not be loaded")
	})

	t.Run("no output", func(t *testing.T) {
		script := fakeSoffice(t, "exit 0")
		res := NewLibreOfficeStrategy(script, 10*time.Second).Convert(context.Background(), "/in/a.docx", t.TempDir())

		assert.Equal(t, StatusFailed, res.Status)
		assert.Equal(t, errors.CodeNoOutput, appCode(t, res.Err))
	})

	t.Run("not installed", func(t *testing.T) {
		res := NewLibreOfficeStrategy("", time.Second).Convert(context.Background(), "/in/a.docx", t.TempDir())

		assert.Equal(t, StatusUnavailable, res.Status)
		assert.True(t, errors.Is(res.Err, ErrNotFound))
	})
}

type fakeExec struct {
	lookErr error
	run     func(name string, args []string) ([]byte, []byte, error)
	calls   [][]string
}

func (f *fakeExec) LookPath(file string) (string, error) {
	if f.lookErr != nil {
		return "", f.lookErr
	}
	return `C:\Windows\System32\` + file, nil
}

func (f *fakeExec) Run(ctx context.Context, name string, args []string, env []string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.run(name, args)
}

func TestExcelCOMStrategy(t *testing.T) {
	t.Run("unavailable off windows", func(t *testing.T) {
		s := &ExcelCOMStrategy{GOOS: "linux", Timeout: time.Second, exec: &fakeExec{}}
		res := s.Convert(context.Background(), "a.xlsx", t.TempDir())
		assert.Equal(t, StatusUnavailable, res.Status)
		assert.Equal(t, errors.CodeToolUnavailable, appCode(t, res.Err))
	})

	t.Run("unavailable for documents", func(t *testing.T) {
		s := &ExcelCOMStrategy{GOOS: "windows", Timeout: time.Second, exec: &fakeExec{}}
		res := s.Convert(context.Background(), "a.docx", t.TempDir())
		assert.Equal(t, StatusUnavailable, res.Status)
	})

	t.Run("exports on windows", func(t *testing.T) {
		outDir := t.TempDir()
		fe := &fakeExec{run: func(name string, args []string) ([]byte, []byte, error) {
			return nil, nil, os.WriteFile(filepath.Join(outDir, "book.pdf"), []byte("pdf"), 0644)
		}}
		s := &ExcelCOMStrategy{GOOS: "windows", PowerShell: "powershell.exe", Timeout: time.Second, exec: fe}

		res := s.Convert(context.Background(), "book.xlsx", outDir)

		require.Equal(t, StatusSuccess, res.Status, "err: %v", res.Err)
		require.Len(t, fe.calls, 1)
		script := fe.calls[0][len(fe.calls[0])-1]
		assert.Contains(t, script, "Workbooks.Open('book.xlsx')")
		assert.Contains(t, script, psQuote(filepath.Join(outDir, "book.pdf")))
		assert.Contains(t, script, "FitToPagesWide = 1")
	})

	t.Run("missing excel is unavailable", func(t *testing.T) {
		fe := &fakeExec{run: func(string, []string) ([]byte, []byte, error) {
			return nil, []byte("Retrieving the COM class factory failed: 80040154"), os.ErrNotExist
		}}
		s := &ExcelCOMStrategy{GOOS: "windows", PowerShell: "powershell.exe", Timeout: time.Second, exec: fe}
		res := s.Convert(context.Background(), "book.xls", t.TempDir())
		assert.Equal(t, StatusUnavailable, res.Status)
	})
}

func TestPSQuote(t *testing.T) {
	assert.Equal(t, `'C:\O''Brien\a.xlsx'`, psQuote(`C:\O'Brien\a.xlsx`))
}

type stubStrategy struct {
	name   string
	result Result
	called *int
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Convert(ctx context.Context, input, outDir string) Result {
	if s.called != nil {
		*s.called++
	}
	return s.result
}

func TestChain_Run(t *testing.T) {
	timeoutErr := errors.ConversionError(errors.CodeTimeout, toolLibreOffice, context.DeadlineExceeded)
	toolErr := errors.ConversionError(errors.CodeToolFailed, toolExcel, nil)

	t.Run("first success wins", func(t *testing.T) {
		after := 0
		chain := NewChain(
			stubStrategy{name: "a", result: unavailable("a", nil)},
			stubStrategy{name: "b", result: Result{Status: StatusSuccess, Path: "/out/x.pdf"}},
			stubStrategy{name: "c", result: Result{Status: StatusSuccess}, called: &after},
		)
		res, err := chain.Run(context.Background(), "x.xlsx", "/out")
		require.NoError(t, err)
		assert.Equal(t, "b", res.Strategy)
		assert.Equal(t, "/out/x.pdf", res.Path)
		assert.Zero(t, after)
	})

	t.Run("failure falls through", func(t *testing.T) {
		chain := NewChain(
			stubStrategy{name: "a", result: failed(toolErr)},
			stubStrategy{name: "b", result: Result{Status: StatusSuccess}},
		)
		res, err := chain.Run(context.Background(), "x.xlsx", "/out")
		require.NoError(t, err)
		assert.Equal(t, "b", res.Strategy)
	})

	t.Run("single failure is returned unchanged", func(t *testing.T) {
		chain := NewChain(
			stubStrategy{name: "excel", result: unavailable(toolExcel, nil)},
			stubStrategy{name: "libreoffice", result: failed(timeoutErr)},
		)
		_, err := chain.Run(context.Background(), "x.xlsx", "/out")
		assert.Equal(t, errors.CodeTimeout, appCode(t, err))
	})

	t.Run("several failures are summarised", func(t *testing.T) {
		chain := NewChain(
			stubStrategy{name: "excel", result: failed(toolErr)},
			stubStrategy{name: "libreoffice", result: failed(timeoutErr)},
		)
		_, err := chain.Run(context.Background(), "x.xlsx", "/out")
		assert.Equal(t, errors.CodeToolFailed, appCode(t, err))
		assert.Contains(t, err.Error(), "2 errors occurred")
	})

	t.Run("all unavailable", func(t *testing.T) {
		chain := NewChain(
			stubStrategy{name: "excel", result: unavailable(toolExcel, nil)},
			stubStrategy{name: "libreoffice", result: unavailable(toolLibreOffice, ErrNotFound)},
		)
		res, err := chain.Run(context.Background(), "x.xlsx", "/out")
		assert.Equal(t, StatusUnavailable, res.Status)
		assert.Equal(t, errors.CodeToolUnavailable, appCode(t, err))
	})

	t.Run("empty chain", func(t *testing.T) {
		_, err := NewChain().Run(context.Background(), "x.xlsx", "/out")
		assert.Equal(t, errors.CodeToolUnavailable, appCode(t, err))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewChain(stubStrategy{name: "a"}).Run(ctx, "x.xlsx", "/out")
		assert.Equal(t, errors.CodeCancelled, appCode(t, err))
	})
}

func TestOptions_EffectiveTimeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, DefaultTimeout},
		{time.Second, MinTimeout},
		{90 * time.Second, 90 * time.Second},
		{10 * time.Minute, MaxTimeout},
	}
	for _, tt := range tests {
		o := &Options{Timeout: tt.in}
		assert.Equal(t, tt.want, o.EffectiveTimeout(), "timeout %s", tt.in)
	}
	assert.Error(t, (&Options{Timeout: -time.Second}).Validate())
}

func TestConverter(t *testing.T) {
	c := NewConverterWithEnv(DefaultOptions(), DiscoveryEnv{GOOS: "linux", Exists: existsIn()})

	assert.False(t, c.Available())
	assert.Empty(t, c.LibreOfficePath())
	assert.Equal(t, []string{"excel-com", "libreoffice"}, c.ChainFor("a.XLSX").Strategies())
	assert.Equal(t, []string{"libreoffice"}, c.ChainFor("a.pptx").Strategies())

	noExcel := NewConverterWithEnv(&Options{DisableExcel: true}, DiscoveryEnv{GOOS: "linux", Exists: existsIn()})
	assert.Equal(t, []string{"libreoffice"}, noExcel.ChainFor("a.xls").Strategies())

	_, err := c.ToPDF(context.Background(), "notes.txt", t.TempDir())
	assert.Equal(t, errors.CodeUnsupportedFormat, appCode(t, err))

	_, err = c.ToPDF(context.Background(), "letter.docx", t.TempDir())
	assert.Equal(t, errors.CodeToolUnavailable, appCode(t, err))
}

func TestConverter_FakeLibreOffice(t *testing.T) {
	script := fakeSoffice(t, `if [ "$1" = "--version" ]; then echo "LibreOffice 7.6.4.1"; exit 0; fi
`+writesPDF)

	c := NewConverterWithEnv(&Options{SofficePath: script}, SystemDiscoveryEnv(script))
	require.True(t, c.Available())

	version, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "LibreOffice 7.6.4.1", version)

	outDir := t.TempDir()
	res, err := c.ToPDF(context.Background(), filepath.Join(t.TempDir(), "slides.pptx"), outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "slides.pdf"), res.Path)
}

func TestIsOfficeFile(t *testing.T) {
	for _, name := range []string{"a.ppt", "a.PPTX", "a.doc", "a.docx", "a.odt", "a.xls", "a.xlsx"} {
		assert.True(t, IsOfficeFile(name), name)
	}
	assert.False(t, IsOfficeFile("a.csv"))
	assert.True(t, IsSpreadsheet("b.XLS"))
	assert.False(t, IsSpreadsheet("b.docx"))
}
