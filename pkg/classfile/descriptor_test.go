package classfile

import "testing"

func TestDescriptorRoundTrip(t *testing.T) {
	cases := []string{
		"Z", "B", "C", "S", "I", "J", "F", "D",
		"Ljava/lang/String;",
		"[I",
		"[[Ljava/lang/Object;",
	}
	for _, s := range cases {
		d, n, err := ParseDescriptor(s, false)
		if err != nil {
			t.Fatalf("ParseDescriptor(%q): %v", s, err)
		}
		if n != len(s) {
			t.Fatalf("ParseDescriptor(%q): consumed %d, want %d", s, n, len(s))
		}
		if got := d.String(); got != s {
			t.Errorf("round trip %q: got %q", s, got)
		}
	}
}

func TestDescriptorVoidOnlyAsReturn(t *testing.T) {
	if _, _, err := ParseDescriptor("V", false); err == nil {
		t.Fatal("expected error parsing V as a non-return descriptor")
	}
	if _, _, err := ParseDescriptor("V", true); err != nil {
		t.Fatalf("V as return type: %v", err)
	}
}

func TestMethodDescriptorRoundTrip(t *testing.T) {
	cases := []string{
		"()V",
		"(I)I",
		"([Ljava/lang/String;)V",
		"(IJLjava/lang/Object;)Z",
	}
	for _, s := range cases {
		md, err := ParseMethodDescriptor(s)
		if err != nil {
			t.Fatalf("ParseMethodDescriptor(%q): %v", s, err)
		}
		if got := md.String(); got != s {
			t.Errorf("round trip %q: got %q", s, got)
		}
	}
}

func TestMethodDescriptorEqual(t *testing.T) {
	a, _ := ParseMethodDescriptor("(I)I")
	b, _ := ParseMethodDescriptor("(I)I")
	c, _ := ParseMethodDescriptor("(J)I")
	if !a.Equal(b) {
		t.Error("expected equal descriptors to compare equal")
	}
	if a.Equal(c) {
		t.Error("expected different descriptors to compare unequal")
	}
}
