package boot

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kvothe-dev/jalopy/pkg/rt"
)

func writeZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip.Create(%s) error = %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("zip write(%s) error = %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestJmodSourceLoadStripsHeaderAndPrefix(t *testing.T) {
	zipBytes := writeZip(t, map[string][]byte{"classes/java/lang/Object.class": []byte("cafebabe")})
	path := filepath.Join(t.TempDir(), "java.base.jmod")
	if err := os.WriteFile(path, append(append([]byte{}, jmodHeader...), zipBytes...), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	src, err := OpenJmod(path)
	if err != nil {
		t.Fatalf("OpenJmod() error = %v", err)
	}
	data, source, ok, err := src.Load("java/lang/Object")
	if err != nil || !ok {
		t.Fatalf("Load() = (%q, %v, %v, %v)", data, source, ok, err)
	}
	if string(data) != "cafebabe" {
		t.Errorf("Load() data = %q, want %q", data, "cafebabe")
	}
	if source != rt.SourceJAR {
		t.Errorf("Load() source = %v, want SourceJAR", source)
	}

	if _, _, ok, err := src.Load("no/such/Class"); ok || err != nil {
		t.Errorf("Load(missing) = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

func TestOpenJmodRejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jmod")
	if err := os.WriteFile(path, []byte("not-a-jmod-file"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := OpenJmod(path); err == nil {
		t.Fatal("OpenJmod() error = nil, want an error for a bad header")
	}
}

func TestJarSourceLoadHasNoPrefix(t *testing.T) {
	zipBytes := writeZip(t, map[string][]byte{"com/example/Main.class": []byte("classbytes")})
	path := filepath.Join(t.TempDir(), "app.jar")
	if err := os.WriteFile(path, zipBytes, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	src, err := OpenJar(path)
	if err != nil {
		t.Fatalf("OpenJar() error = %v", err)
	}
	data, source, ok, err := src.Load("com/example/Main")
	if err != nil || !ok {
		t.Fatalf("Load() = (%q, %v, %v, %v)", data, source, ok, err)
	}
	if string(data) != "classbytes" {
		t.Errorf("Load() data = %q, want %q", data, "classbytes")
	}
	if source != rt.SourceJAR {
		t.Errorf("Load() source = %v, want SourceJAR", source)
	}
}

func TestDirSourceLoad(t *testing.T) {
	root := t.TempDir()
	classDir := filepath.Join(root, "com", "example")
	if err := os.MkdirAll(classDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(classDir, "Main.class"), []byte("dirbytes"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	src := NewDirSource(root)
	data, source, ok, err := src.Load("com/example/Main")
	if err != nil || !ok {
		t.Fatalf("Load() = (%q, %v, %v, %v)", data, source, ok, err)
	}
	if string(data) != "dirbytes" {
		t.Errorf("Load() data = %q, want %q", data, "dirbytes")
	}
	if source != rt.SourceFilesystem {
		t.Errorf("Load() source = %v, want SourceFilesystem", source)
	}

	if _, _, ok, err := src.Load("com/example/Missing"); ok || err != nil {
		t.Errorf("Load(missing) = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

func TestFindJavaBaseJmodHonorsExplicitOverride(t *testing.T) {
	t.Setenv("JALOPY_JAVA_BASE_JMOD", "/tmp/override/java.base.jmod")
	t.Setenv("JAVA_HOME", "")
	if got := FindJavaBaseJmod(); got != "/tmp/override/java.base.jmod" {
		t.Errorf("FindJavaBaseJmod() = %q, want override path", got)
	}
}

func TestIsJarPath(t *testing.T) {
	cases := map[string]bool{
		"app.jar":      true,
		"app.JAR":      false,
		"classes/dir":  false,
		"lib/guava.jar": true,
	}
	for path, want := range cases {
		if got := isJarPath(path); got != want {
			t.Errorf("isJarPath(%q) = %v, want %v", path, got, want)
		}
	}
}
