package main

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/kvothe-dev/jalopy/pkg/rt"
)

func TestResolveTargetClassFile(t *testing.T) {
	className, cp := resolveTarget("out/com/example/Main.class")
	if className != "Main" {
		t.Errorf("className = %q, want %q", className, "Main")
	}
	if cp != "out/com/example" {
		t.Errorf("classpathDir = %q, want %q", cp, "out/com/example")
	}
}

func TestResolveTargetBareClassName(t *testing.T) {
	className, cp := resolveTarget("com/example/Main")
	if className != "com/example/Main" {
		t.Errorf("className = %q, want %q", className, "com/example/Main")
	}
	if cp != "." {
		t.Errorf("classpathDir = %q, want %q", cp, ".")
	}
}

func TestReportUncaughtJavaErrorLogsExceptionClass(t *testing.T) {
	log, hook := test.NewNullLogger()
	ctx := &rt.Context{Log: logrus.FieldLogger(log)}

	err := reportUncaught(ctx, &rt.JavaError{ClassName: "java/lang/ArithmeticException", Message: "/ by zero"})
	if err == nil {
		t.Fatal("reportUncaught() error = nil, want non-nil")
	}
	if len(hook.Entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(hook.Entries))
	}
	if hook.LastEntry().Level != logrus.ErrorLevel {
		t.Errorf("log level = %v, want ErrorLevel", hook.LastEntry().Level)
	}
	if got := hook.LastEntry().Data["exception"]; got != "java/lang/ArithmeticException" {
		t.Errorf("exception field = %v, want java/lang/ArithmeticException", got)
	}
}

func TestReportUncaughtNativeErrorPassesThrough(t *testing.T) {
	log, hook := test.NewNullLogger()
	ctx := &rt.Context{Log: logrus.FieldLogger(log)}

	native := errors.New("boot: reading java.base.jmod: no such file")
	if err := reportUncaught(ctx, native); err == nil {
		t.Fatal("reportUncaught() error = nil, want non-nil")
	}
	if len(hook.Entries) != 0 {
		t.Errorf("logged %d entries, want 0 for a non-JavaError", len(hook.Entries))
	}
}
