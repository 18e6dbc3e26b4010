package rt

import (
	"strings"

	"github.com/kvothe-dev/jalopy/pkg/classfile"
)

// ResolvedDescriptor mirrors classfile.Descriptor but with every Class and
// Array component holding a live ClassHandle instead of a symbolic name.
type ResolvedDescriptor struct {
	Kind  classfile.DescKind
	Class ClassHandle // valid iff Kind == DescClass or DescArray
}

// IsWide reports whether this type occupies two stack/local slots at the
// verifier level (longs and doubles).
func (d ResolvedDescriptor) IsWide() bool {
	return d.Kind == classfile.DescLong || d.Kind == classfile.DescDouble
}

// IsReference reports whether d is a Class or Array descriptor.
func (d ResolvedDescriptor) IsReference() bool {
	return d.Kind == classfile.DescClass || d.Kind == classfile.DescArray
}

// Resolve turns a symbolic Descriptor into a ResolvedDescriptor, triggering
// class loads for any named class or array element type along the way.
func (ctx *Context) Resolve(d classfile.Descriptor) (ResolvedDescriptor, error) {
	switch d.Kind {
	case classfile.DescClass:
		cls, err := ctx.LoadClass(d.Class)
		if err != nil {
			return ResolvedDescriptor{}, err
		}
		return ResolvedDescriptor{Kind: classfile.DescClass, Class: cls}, nil
	case classfile.DescArray:
		arrCls, err := ctx.ArrayClassFor(d)
		if err != nil {
			return ResolvedDescriptor{}, err
		}
		return ResolvedDescriptor{Kind: classfile.DescArray, Class: arrCls}, nil
	default:
		return ResolvedDescriptor{Kind: d.Kind}, nil
	}
}

// ResolveMethodDescriptor resolves every argument and the return type,
// returning the cached entry for descriptor text seen before.
func (ctx *Context) ResolveMethodDescriptor(m classfile.MethodDescriptor) (ResolvedMethodDescriptor, error) {
	cacheKey := m.String()
	if d, ok := ctx.descriptors.methodDescs[cacheKey]; ok {
		return d, nil
	}
	args := make([]ResolvedDescriptor, len(m.Args))
	for i, a := range m.Args {
		r, err := ctx.Resolve(a)
		if err != nil {
			return ResolvedMethodDescriptor{}, err
		}
		args[i] = r
	}
	ret, err := ctx.Resolve(m.Return)
	if err != nil {
		return ResolvedMethodDescriptor{}, err
	}
	d := ResolvedMethodDescriptor{Args: args, Return: ret, raw: m}
	ctx.descriptors.methodDescs[cacheKey] = d
	return d, nil
}

// ResolvedMethodDescriptor is the hash-consed (args, return) pair. Content-
// equal descriptors share a cache entry keyed by the descriptor text, and
// key() compares them by that text.
type ResolvedMethodDescriptor struct {
	Args   []ResolvedDescriptor
	Return ResolvedDescriptor
	raw    classfile.MethodDescriptor
}

func (m ResolvedMethodDescriptor) key() string { return m.raw.String() }

// descriptorCache hash-conses ResolvedMethodDescriptor and symbolic
// classfile.Descriptor -> array-class lookups; the context's descriptor
// cache is the sole factory for both.
type descriptorCache struct {
	methodDescs map[string]ResolvedMethodDescriptor
	arrayByDesc map[string]ClassHandle
}

func newDescriptorCache() *descriptorCache {
	return &descriptorCache{
		methodDescs: make(map[string]ResolvedMethodDescriptor),
		arrayByDesc: make(map[string]ClassHandle),
	}
}

func arrayDescKey(elem classfile.Descriptor) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(elem.String())
	return b.String()
}
