package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kvothe-dev/jalopy/internal/boot"
	"github.com/kvothe-dev/jalopy/pkg/rt"
)

var (
	jmodPath    string
	classpath   []string
	gcThreshold int
	maxFrames   int
	logLevel    string

	version = "dev"
)

func main() {
	log := logrus.New()

	root := &cobra.Command{
		Use:   "jalopy",
		Short: "jalopy runs compiled JVM class files",
	}
	root.PersistentFlags().StringVar(&jmodPath, "jmod", "", "path to java.base.jmod (default: $JAVA_HOME or the usual OpenJDK install path)")
	root.PersistentFlags().StringArrayVar(&classpath, "classpath", nil, "additional classpath entries (directories or .jar files)")
	root.PersistentFlags().IntVar(&gcThreshold, "gc-threshold", rt.DefaultConfig().GCThreshold, "allocations between garbage collections")
	root.PersistentFlags().IntVar(&maxFrames, "max-frame-depth", rt.DefaultConfig().MaxFrameDepth, "maximum call-stack depth before StackOverflowError")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level: trace, debug, info, warn, error")

	root.AddCommand(runCmd(log), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "run <class-file-or-name> [args...]",
		Short: "load and execute a .class file or a class by name (jar main-class discovery is not supported)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("jalopy: invalid --log-level %q: %w", logLevel, err)
			}
			log.SetLevel(level)

			target := args[0]
			progArgs := args[1:]

			jmod := jmodPath
			if jmod == "" {
				jmod = boot.FindJavaBaseJmod()
			}
			if jmod == "" {
				return fmt.Errorf("jalopy: could not find java.base.jmod; pass --jmod or set JAVA_HOME")
			}

			className, cp := resolveTarget(target)
			cfg := rt.Config{
				GCThreshold:   gcThreshold,
				MaxFrameDepth: maxFrames,
				FrameDataSize: rt.DefaultConfig().FrameDataSize,
			}

			ctx, err := boot.New(cfg, log, jmod, append([]string{cp}, classpath...))
			if err != nil {
				return fmt.Errorf("jalopy: %w", err)
			}
			if err := boot.WireConsole(ctx); err != nil {
				return fmt.Errorf("jalopy: %w", err)
			}
			return runMain(ctx, className, progArgs)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print jalopy's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("jalopy", version)
			return nil
		},
	}
}

// resolveTarget splits a "run" argument into the binary name the entry
// class should be loaded under and the classpath directory to mount it
// from, also accepting a bare directory-relative class name.
func resolveTarget(target string) (className, classpathDir string) {
	if filepath.Ext(target) == ".class" {
		return strings.TrimSuffix(filepath.Base(target), ".class"), filepath.Dir(target)
	}
	return target, "."
}

// runMain looks up and invokes className's public static void main(String[])
// with progArgs converted to a java/lang/String[], surfacing an uncaught
// Java exception's class and message at ERROR level.
func runMain(ctx *rt.Context, className string, progArgs []string) error {
	cls, err := ctx.LoadClass(className)
	if err != nil {
		return fmt.Errorf("jalopy: loading %s: %w", className, err)
	}
	if err := ctx.RunClinit(cls); err != nil {
		return reportUncaught(ctx, err)
	}

	mh, ok := ctx.FindMain(cls)
	if !ok {
		return fmt.Errorf("jalopy: %s has no main(String[]) method", className)
	}

	argv, err := ctx.NewStringArray(progArgs)
	if err != nil {
		return fmt.Errorf("jalopy: %w", err)
	}
	if _, err := ctx.InvokeStatic(mh, []rt.Value{rt.RefVal(argv)}); err != nil {
		return reportUncaught(ctx, err)
	}
	return nil
}

func reportUncaught(ctx *rt.Context, err error) error {
	if je, ok := err.(*rt.JavaError); ok {
		ctx.Log.WithField("exception", je.ClassName).Error(je.Message)
		return fmt.Errorf("jalopy: uncaught %s: %s", je.ClassName, je.Message)
	}
	return fmt.Errorf("jalopy: %w", err)
}
