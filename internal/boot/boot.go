// Package boot assembles a ready-to-run rt.Context: the native method
// catalog, the bootstrap java.base module, and the user's classpath, each
// mounted as an implementation of rt.Context's narrow ClassSource contract.
package boot

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/kvothe-dev/jalopy/internal/hostio"
	"github.com/kvothe-dev/jalopy/pkg/native"
	"github.com/kvothe-dev/jalopy/pkg/rt"
)

// jmodHeader is the 4-byte magic every .jmod file starts with, ahead of
// the zip archive proper.
var jmodHeader = []byte{'J', 'M', 1, 0}

// FindJavaBaseJmod locates java.base.jmod: an explicit override, then
// $JAVA_HOME, then the usual Linux OpenJDK install layout.
func FindJavaBaseJmod() string {
	if p := os.Getenv("JALOPY_JAVA_BASE_JMOD"); p != "" {
		return p
	}
	if home := os.Getenv("JAVA_HOME"); home != "" {
		p := filepath.Join(home, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("/usr/lib/jvm/*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

// JmodSource mounts a .jmod module file as a ClassSource: a zip archive
// with a 4-byte header and every class entry prefixed "classes/".
type JmodSource struct {
	path   string
	reader *zip.Reader
}

// OpenJmod reads and indexes path as a jmod-format archive.
func OpenJmod(path string) (*JmodSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("boot: reading %s: %w", path, err)
	}
	if len(data) < len(jmodHeader) || !bytes.Equal(data[:len(jmodHeader)], jmodHeader) {
		return nil, fmt.Errorf("boot: %s is not a jmod file (bad header)", path)
	}
	body := data[len(jmodHeader):]
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("boot: opening %s as zip: %w", path, err)
	}
	return &JmodSource{path: path, reader: zr}, nil
}

func (s *JmodSource) Load(className string) ([]byte, rt.LoadSource, bool, error) {
	data, ok, err := readZipEntry(s.reader, "classes/"+className+".class")
	if !ok || err != nil {
		return nil, 0, ok, err
	}
	return data, rt.SourceJAR, true, nil
}

// JarSource mounts a plain .jar classpath entry: same zip container as a
// jmod, but no header to skip and no "classes/" prefix on entries.
type JarSource struct {
	reader *zip.Reader
}

// OpenJar reads and indexes path as a jar-format archive.
func OpenJar(path string) (*JarSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("boot: reading %s: %w", path, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("boot: opening %s as zip: %w", path, err)
	}
	return &JarSource{reader: zr}, nil
}

func (s *JarSource) Load(className string) ([]byte, rt.LoadSource, bool, error) {
	data, ok, err := readZipEntry(s.reader, className+".class")
	if !ok || err != nil {
		return nil, 0, ok, err
	}
	return data, rt.SourceJAR, true, nil
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, bool, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, true, fmt.Errorf("boot: opening %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, true, fmt.Errorf("boot: reading %s: %w", name, err)
		}
		return data, true, nil
	}
	return nil, false, nil
}

// DirSource mounts a plain classpath directory (a javac -d output tree).
type DirSource struct {
	root string
}

// NewDirSource returns a ClassSource rooted at root.
func NewDirSource(root string) *DirSource { return &DirSource{root: root} }

func (s *DirSource) Load(className string) ([]byte, rt.LoadSource, bool, error) {
	path := filepath.Join(s.root, filepath.FromSlash(className)+".class")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("boot: reading %s: %w", path, err)
	}
	return data, rt.SourceFilesystem, true, nil
}

// New assembles a Context with the native catalog installed and class
// sources mounted bootstrap-first: java.base.jmod, then each classpath
// entry (jar or directory) in the order given, matching a
// delegates-to-parent search order.
func New(cfg rt.Config, log logrus.FieldLogger, jmodPath string, classpath []string) (*rt.Context, error) {
	ctx := rt.New(cfg, log)
	native.Install(ctx.Natives())

	jmod, err := OpenJmod(jmodPath)
	if err != nil {
		return nil, err
	}
	ctx.RegisterSource(jmod)

	for _, entry := range classpath {
		if isJarPath(entry) {
			jar, err := OpenJar(entry)
			if err != nil {
				return nil, err
			}
			ctx.RegisterSource(jar)
			continue
		}
		ctx.RegisterSource(NewDirSource(entry))
	}

	return ctx, nil
}

func isJarPath(p string) bool {
	return filepath.Ext(p) == ".jar"
}

// WireConsole attaches the host's stdout/stderr to java/lang/System's
// out/err fields. It loads System and runs its <clinit> first (a no-op if
// that already happened), since those fields are ordinary PrintStream
// instances until a native backing is stashed into them.
func WireConsole(ctx *rt.Context) error {
	console, err := hostio.OpenConsole()
	if err != nil {
		return err
	}
	systemCls, err := ctx.LoadClass("java/lang/System")
	if err != nil {
		return fmt.Errorf("boot: loading java/lang/System: %w", err)
	}
	if err := ctx.RunClinit(systemCls); err != nil {
		return fmt.Errorf("boot: running java/lang/System.<clinit>: %w", err)
	}

	out, ok := ctx.StaticObjectField(systemCls, "out")
	if !ok {
		return fmt.Errorf("boot: java/lang/System has no \"out\" field")
	}
	errOut, ok := ctx.StaticObjectField(systemCls, "err")
	if !ok {
		return fmt.Errorf("boot: java/lang/System has no \"err\" field")
	}
	native.BootstrapPrintStream(out, console.Stdout)
	native.BootstrapPrintStream(errOut, console.Stderr)
	return nil
}
