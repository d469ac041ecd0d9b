package sim

import (
	"fmt"
	"sync"

	"github.com/dshills/mrdbg/internal/engine"
)

// CoreModuleName is the display name of the simulated core library.
const CoreModuleName = "System.Private.CoreLib.dll"

// Module is a simulated managed module with a two-level type table:
// top-level definitions and definitions nested inside another type.
type Module struct {
	name string

	mu     sync.Mutex
	next   engine.TypeToken
	types  map[typeKey]engine.TypeToken
	issued map[engine.TypeToken]bool
}

type typeKey struct {
	name      string
	enclosing engine.TypeToken
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		name:   name,
		next:   0x02000000,
		types:  make(map[typeKey]engine.TypeToken),
		issued: make(map[engine.TypeToken]bool),
	}
}

// NewCoreModule creates the simulated core library, including the
// cross-thread dependency notification marker nested inside
// System.Diagnostics.Debugger.
func NewCoreModule() *Module {
	m := NewModule(CoreModuleName)
	m.AddType("System.Object", engine.TypeTokenNil)
	m.AddType("System.String", engine.TypeTokenNil)
	dbg := m.AddType("System.Diagnostics.Debugger", engine.TypeTokenNil)
	m.AddType("CrossThreadDependencyNotification", dbg)
	return m
}

// AddType registers a type definition and returns its token. Adding the
// same name in the same scope twice returns the original token.
func (m *Module) AddType(name string, enclosing engine.TypeToken) engine.TypeToken {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := typeKey{name: name, enclosing: enclosing}
	if tok, ok := m.types[key]; ok {
		return tok
	}
	m.next++
	m.types[key] = m.next
	m.issued[m.next] = true
	return m.next
}

// Name returns the module's display name.
func (m *Module) Name() string { return m.name }

// FindType resolves a type definition by name within the given scope.
func (m *Module) FindType(name string, enclosing engine.TypeToken) (engine.TypeToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.types[typeKey{name: name, enclosing: enclosing}]
	if !ok {
		return engine.TypeTokenNil, fmt.Errorf("%w: %s", engine.ErrTypeNotFound, name)
	}
	return tok, nil
}

// ClassFromToken materializes a class handle for an issued token.
func (m *Module) ClassFromToken(tok engine.TypeToken) (engine.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.issued[tok] {
		return nil, fmt.Errorf("%w: token 0x%08x", engine.ErrTypeNotFound, uint32(tok))
	}
	return &Class{tok: tok}, nil
}

// Class is a simulated class handle.
type Class struct {
	tok engine.TypeToken
}

// Token returns the metadata token the class was resolved from.
func (c *Class) Token() engine.TypeToken { return c.tok }
