// Package errors provides the error type used across the graph engine:
// a builder that attaches a component, a category and free-form context
// to an underlying error without losing the ability to unwrap or match it
// with the standard library.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory groups errors for logging and metrics.
type ErrorCategory string

// CategorizedError lets a concrete error type declare its own category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryGraphCycle      ErrorCategory = "graph-cycle"
	CategoryPreparation     ErrorCategory = "preparation"
	CategoryDecoder         ErrorCategory = "decoder"
	CategoryCommandRouting  ErrorCategory = "command-routing"
	CategoryBufferOverrun   ErrorCategory = "buffer-overrun"
	CategoryWorkerException ErrorCategory = "worker-exception"
	CategoryDevice          ErrorCategory = "device"
	CategoryConfiguration   ErrorCategory = "configuration"
	CategoryValidation      ErrorCategory = "validation"
	CategoryFileIO          ErrorCategory = "file-io"
	CategoryGeneric         ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with component, category and context.
type EnhancedError struct {
	Err       error
	component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
	mu        sync.RWMutex
	detected  bool
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }

func (ee *EnhancedError) Unwrap() error { return ee.Err }

func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name, detecting it lazily from the
// call stack if the builder did not set one explicitly.
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	if ee.detected || ee.component != "" {
		component := ee.component
		ee.mu.RUnlock()
		return component
	}
	ee.mu.RUnlock()

	ee.mu.Lock()
	defer ee.mu.Unlock()
	if ee.component == "" && !ee.detected {
		ee.component = detectComponent()
		ee.detected = true
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
	}
	return ee.component
}

func (ee *EnhancedError) GetCategory() string { return string(ee.Category) }

func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	if ee.Context == nil {
		return nil
	}
	out := make(map[string]any, len(ee.Context))
	maps.Copy(out, ee.Context)
	return out
}

func (ee *EnhancedError) GetTimestamp() time.Time { return ee.Timestamp }

// ErrorBuilder is the fluent constructor for EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts building an enhanced error around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf builds an enhanced error around a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build materializes the EnhancedError, auto-detecting the component and
// category when the caller didn't supply them.
func (eb *ErrorBuilder) Build() *EnhancedError {
	component := eb.component
	detected := component != ""
	if component == "" {
		component = detectComponent()
		detected = true
		if component == "" {
			component = ComponentUnknown
		}
	}
	category := eb.category
	if category == "" {
		category = detectCategory(eb.err, component)
	}
	return &EnhancedError{
		Err:       eb.err,
		component: component,
		Category:  category,
		Context:   eb.context,
		Timestamp: time.Now(),
		detected:  detected,
	}
}

var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

// RegisterComponent associates a package path fragment with a component name.
func RegisterComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	RegisterComponent("internal/audio/elements", "elements")
	RegisterComponent("internal/audio", "audio")
	RegisterComponent("internal/engine", "engine")
	RegisterComponent("internal/device", "device")
	RegisterComponent("internal/decoder", "decoder")
	RegisterComponent("internal/config", "configuration")
	RegisterComponent("internal/metrics", "metrics")
	RegisterComponent("cmd/graphplay", "cli")
}

func detectComponent() string {
	for _, depth := range []int{4, 5, 6, 7} {
		if component := quickComponentLookup(depth); component != "" && component != ComponentUnknown {
			return component
		}
	}
	return detectComponentFull()
}

func quickComponentLookup(depth int) string {
	pc, _, _, ok := runtime.Caller(depth)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	funcName := fn.Name()
	if strings.Contains(funcName, "github.com/kestrelaudio/graphcore/internal/errors") {
		return ""
	}
	return lookupComponent(funcName)
}

func detectComponentFull() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	if n == len(pcs) {
		pcs = make([]uintptr, 32)
		n = runtime.Callers(2, pcs)
	}
	for i := range n {
		fn := runtime.FuncForPC(pcs[i])
		if fn == nil {
			continue
		}
		funcName := fn.Name()
		if strings.Contains(funcName, "github.com/kestrelaudio/graphcore/internal/errors") {
			continue
		}
		if component := lookupComponent(funcName); component != ComponentUnknown {
			return component
		}
	}
	return ComponentUnknown
}

func lookupComponent(funcName string) string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	for pattern, component := range componentRegistry {
		if strings.Contains(funcName, pattern) {
			return component
		}
	}
	parts := strings.Split(funcName, "/")
	if len(parts) > 0 {
		lastPart := parts[len(parts)-1]
		if dotIndex := strings.Index(lastPart, "."); dotIndex > 0 {
			return lastPart[:dotIndex]
		}
	}
	return ComponentUnknown
}

func detectCategory(err error, component string) ErrorCategory {
	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}
	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}
	if err == nil {
		return CategoryGeneric
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "cycle"):
		return CategoryGraphCycle
	case strings.Contains(msg, "decode") || strings.Contains(msg, "decoder"):
		return CategoryDecoder
	case strings.Contains(msg, "canary") || strings.Contains(msg, "overrun"):
		return CategoryBufferOverrun
	case strings.Contains(msg, "destination") || strings.Contains(msg, "command"):
		return CategoryCommandRouting
	case strings.Contains(msg, "device"):
		return CategoryDevice
	case strings.Contains(msg, "file") || strings.Contains(msg, "open") || strings.Contains(msg, "read"):
		return CategoryFileIO
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "mismatch"):
		return CategoryValidation
	}
	switch component {
	case "audio", "elements":
		return CategoryPreparation
	case "configuration":
		return CategoryConfiguration
	}
	return CategoryGeneric
}

// Wrap is an alias of New kept for readability at call sites that are
// wrapping rather than originating an error.
func Wrap(err error) *ErrorBuilder { return New(err) }

// NewStd creates a plain standard-library error.
func NewStd(text string) error { return stderrors.New(text) }

func Is(err, target error) bool  { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Unwrap(err error) error     { return stderrors.Unwrap(err) }
func Join(errs ...error) error   { return stderrors.Join(errs...) }

// IsCategory reports whether err is an EnhancedError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}
