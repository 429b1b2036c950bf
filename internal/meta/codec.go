package meta

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// SchemaVersion is bumped whenever the encoded Module layout changes.
const SchemaVersion uint16 = 1

var magic = [4]byte{'C', 'M', 'O', 'D'}

var (
	// ErrBadMagic reports input that does not start with the module header.
	ErrBadMagic = errors.New("not a compiled module")
	// ErrSchema reports a module written with an unsupported schema version.
	ErrSchema = errors.New("unsupported module schema")
	// ErrMalformed reports a module whose contents violate the model.
	ErrMalformed = errors.New("malformed module")
)

// Encode writes m in the binary module format: the 4-byte magic, the
// little-endian schema version, then the msgpack-encoded module.
func Encode(w io.Writer, m *Module) error {
	if err := validateModule(m); err != nil {
		return err
	}
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, SchemaVersion); err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(m)
}

// Decode reads a module written by Encode.
func Decode(r io.Reader) (*Module, error) {
	br := bufio.NewReader(r)
	var head [4]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, err
	}
	if head != magic {
		return nil, ErrBadMagic
	}
	var schema uint16
	if err := binary.Read(br, binary.LittleEndian, &schema); err != nil {
		return nil, fmt.Errorf("%w: truncated header", ErrBadMagic)
	}
	if schema != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, schema, SchemaVersion)
	}
	m := &Module{}
	if err := msgpack.NewDecoder(br).Decode(m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := validateModule(m); err != nil {
		return nil, err
	}
	m.link()
	return m, nil
}

// DecodeBytes decodes a module held in memory.
func DecodeBytes(data []byte) (*Module, error) {
	return Decode(bytes.NewReader(data))
}

// LoadFile reads and decodes the module stored at path.
func LoadFile(path string) (*Module, error) {
	m, _, err := ReadFile(path)
	return m, err
}

// ReadFile is LoadFile that also returns the raw file contents, for callers
// that key caches on them.
func ReadFile(path string) (*Module, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := DecodeBytes(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	m.path = path
	return m, data, nil
}

// SaveFile encodes m to path, replacing any existing file atomically.
func SaveFile(path string, m *Module) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".module-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	w := bufio.NewWriter(f)
	if err = Encode(w, m); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return err
	}
	m.path = path
	return nil
}

func validateModule(m *Module) error {
	if m == nil {
		return fmt.Errorf("%w: nil module", ErrMalformed)
	}
	if m.Name == "" {
		return fmt.Errorf("%w: module has no name", ErrMalformed)
	}
	var checkType func(t *TypeDef) error
	checkType = func(t *TypeDef) error {
		if t == nil || t.Name == "" {
			return fmt.Errorf("%w: unnamed type in %s", ErrMalformed, m.Name)
		}
		if _, err := safecast.Conv[uint16](len(t.GenericParams)); err != nil {
			return fmt.Errorf("%w: %s: too many generic parameters", ErrMalformed, t.Name)
		}
		if err := validateRef(t.BaseType); err != nil {
			return fmt.Errorf("%s base: %w", t.Name, err)
		}
		for _, meth := range t.Methods {
			if err := validateMethod(meth); err != nil {
				return fmt.Errorf("%s::%s: %w", t.Name, meth.Name, err)
			}
		}
		for _, n := range t.Nested {
			if err := checkType(n); err != nil {
				return err
			}
		}
		return nil
	}
	for _, t := range m.Types {
		if err := checkType(t); err != nil {
			return err
		}
	}
	return nil
}

func validateMethod(m *MethodDef) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("%w: unnamed method", ErrMalformed)
	}
	for _, p := range m.Params {
		if err := validateRef(p); err != nil {
			return err
		}
	}
	if m.Body == nil {
		return nil
	}
	for _, l := range m.Body.Locals {
		if err := validateRef(l); err != nil {
			return err
		}
	}
	for i, in := range m.Body.Instructions {
		if !in.Op.Valid() {
			return fmt.Errorf("%w: IL_%04x: unknown opcode %d", ErrMalformed, i, in.Op)
		}
		if err := validateRef(in.Operand.Type); err != nil {
			return fmt.Errorf("IL_%04x: %w", i, err)
		}
		if mr := in.Operand.Method; mr != nil {
			if mr.DeclaringType == nil {
				return fmt.Errorf("%w: IL_%04x: method %s has no declaring type", ErrMalformed, i, mr.Name)
			}
			if err := validateRef(mr.DeclaringType); err != nil {
				return fmt.Errorf("IL_%04x: %w", i, err)
			}
			for _, a := range mr.TypeArgs {
				if err := validateRef(a); err != nil {
					return fmt.Errorf("IL_%04x: %w", i, err)
				}
			}
		}
	}
	return nil
}

func validateRef(t *TypeRef) error {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case KindDefinition:
	case KindInstance:
		if len(t.Args) == 0 {
			return fmt.Errorf("%w: instance %s has no arguments", ErrMalformed, t.Name)
		}
		for _, a := range t.Args {
			if a == nil {
				return fmt.Errorf("%w: instance %s has a nil argument", ErrMalformed, t.Name)
			}
			if err := validateRef(a); err != nil {
				return err
			}
		}
	case KindParameter:
		if t.Param != ParamType && t.Param != ParamMethod {
			return fmt.Errorf("%w: parameter %s has no kind", ErrMalformed, t.Name)
		}
		if _, err := safecast.Conv[uint16](t.Position); err != nil {
			return fmt.Errorf("%w: parameter %s position %d", ErrMalformed, t.Name, t.Position)
		}
	default:
		return fmt.Errorf("%w: type reference %q has kind %d", ErrMalformed, t.Name, t.Kind)
	}
	return nil
}
