// Package rules provides CEL-based claim assertion rules evaluated against
// validated token claims.
package rules

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/your-org/b2c-validator/internal/domain"
	"github.com/your-org/b2c-validator/pkg/logger"
)

const (
	// DefaultCacheSize is the default maximum number of cached CEL programs.
	DefaultCacheSize = 500

	// maxExpressionLength caps accepted rule expressions.
	maxExpressionLength = 4096
)

// Evaluator compiles and evaluates CEL claim assertions with LRU caching.
type Evaluator struct {
	env *cel.Env
	mu  sync.RWMutex

	// Cache for compiled programs with LRU eviction
	programs map[string]*cacheEntry
	order    *list.List // LRU order: front = most recently used
	capacity int
}

// cacheEntry holds a cached CEL program with its LRU list element.
type cacheEntry struct {
	program    cel.Program
	expression string
	element    *list.Element
}

// NewEvaluator creates an evaluator with the default cache capacity.
func NewEvaluator() (*Evaluator, error) {
	return NewEvaluatorWithCapacity(DefaultCacheSize)
}

// NewEvaluatorWithCapacity creates an evaluator with the given cache capacity.
func NewEvaluatorWithCapacity(capacity int) (*Evaluator, error) {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}

	env, err := cel.NewEnv(
		// Decoded token payload
		cel.Variable("claims", cel.MapType(cel.StringType, cel.DynType)),

		// Tenant lookup name and user-flow policy the token was validated for
		cel.Variable("tenant", cel.StringType),
		cel.Variable("policy", cel.StringType),

		// Current timestamp
		cel.Variable("now", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{
		env:      env,
		programs: make(map[string]*cacheEntry),
		order:    list.New(),
		capacity: capacity,
	}, nil
}

// Compile compiles a CEL expression and caches the program with LRU eviction.
func (e *Evaluator) Compile(expression string) (cel.Program, error) {
	// Check cache first (read lock)
	e.mu.RLock()
	if entry, ok := e.programs[expression]; ok {
		e.mu.RUnlock()
		// Move to front (requires write lock)
		e.mu.Lock()
		if entry, ok := e.programs[expression]; ok {
			e.order.MoveToFront(entry.element)
		}
		e.mu.Unlock()
		return entry.program, nil
	}
	e.mu.RUnlock()

	ast, issues := e.env.Compile(expression)
	if issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("CEL expression must return boolean, got %v", ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check if another goroutine already added it
	if entry, ok := e.programs[expression]; ok {
		e.order.MoveToFront(entry.element)
		return entry.program, nil
	}

	// Evict oldest if at capacity
	for e.order.Len() >= e.capacity {
		e.evictOldest()
	}

	entry := &cacheEntry{
		program:    prg,
		expression: expression,
	}
	entry.element = e.order.PushFront(entry)
	e.programs[expression] = entry

	return prg, nil
}

// evictOldest removes the least recently used cache entry.
func (e *Evaluator) evictOldest() {
	oldest := e.order.Back()
	if oldest == nil {
		return
	}
	entry := oldest.Value.(*cacheEntry)
	delete(e.programs, entry.expression)
	e.order.Remove(oldest)
}

// Evaluate evaluates a single expression against the claim set.
func (e *Evaluator) Evaluate(expression, tenant, policy string, claims domain.ClaimSet) (bool, error) {
	prg, err := e.Compile(expression)
	if err != nil {
		return false, err
	}

	vars := map[string]any{
		"claims": map[string]any(claims),
		"tenant": tenant,
		"policy": policy,
		"now":    time.Now(),
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// EvaluateAll evaluates all expressions and returns the first that does not
// hold, or "" when every assertion passes.
func (e *Evaluator) EvaluateAll(expressions []string, tenant, policy string, claims domain.ClaimSet) (string, error) {
	for _, expr := range expressions {
		if expr == "" {
			continue
		}
		ok, err := e.Evaluate(expr, tenant, policy, claims)
		if err != nil {
			return expr, err
		}
		if !ok {
			return expr, nil
		}
	}
	return "", nil
}

// ValidateExpression validates an expression without evaluating it.
func (e *Evaluator) ValidateExpression(expression string) error {
	if expression == "" {
		return nil
	}

	if len(expression) > maxExpressionLength {
		return fmt.Errorf("expression too long: %d > %d", len(expression), maxExpressionLength)
	}

	_, err := e.Compile(expression)
	return err
}

// PrecompileExpressions precompiles a list of expressions.
// Useful for validating all tenant rules at startup.
func (e *Evaluator) PrecompileExpressions(expressions []string) error {
	for _, expr := range expressions {
		if expr == "" {
			continue
		}
		if _, err := e.Compile(expr); err != nil {
			logger.Error("failed to precompile CEL expression",
				logger.String("expression", expr),
				logger.Err(err),
			)
			return fmt.Errorf("failed to compile expression %q: %w", expr, err)
		}
	}
	return nil
}

// ClearCache clears the compiled programs cache.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	e.programs = make(map[string]*cacheEntry)
	e.order.Init()
	e.mu.Unlock()
}

// CacheSize returns the number of cached programs.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}

// CacheCapacity returns the maximum cache capacity.
func (e *Evaluator) CacheCapacity() int {
	return e.capacity
}
