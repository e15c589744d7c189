package mep

import (
	"context"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"decisionkit/internal/logging"
)

const (
	// floor keeps iterates strictly positive so that log(x) stays finite
	floor = 1e-12

	maxPenalty = 1e10

	armijo = 1e-4

	// slack absorbs rounding in the objective once steps fall below its
	// precision
	slack = 1e-15
)

// Status describes how the optimizer stopped
type Status int

const (
	// StatusConverged means the iterate is feasible and either stationary or
	// no longer improvable at working precision
	StatusConverged Status = iota
	// StatusIterationLimit means the outer iteration cap was reached
	StatusIterationLimit
	// StatusStalled means the line search could not make progress while the
	// constraints were still violated at the largest penalty
	StatusStalled
)

// String returns status name
func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusIterationLimit:
		return "iteration limit reached"
	case StatusStalled:
		return "line search stalled"
	default:
		return "unknown"
	}
}

// Solver maximizes entropy with an augmented-Lagrangian method. Each outer
// iteration minimizes the augmented objective over the box bounds with a
// spectral projected-gradient method, then updates the multipliers and,
// when feasibility does not improve fast enough, the penalty.
type Solver struct {
	logger               *zap.Logger
	maxOuter             int
	maxInner             int
	tolerance            float64
	feasibilityTolerance float64
	initialPenalty       float64
}

// Option configures a Solver
type Option func(*Solver)

// WithLogger sets the diagnostics logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Solver) { s.logger = logging.OrNop(l) }
}

// WithMaxOuterIterations caps multiplier updates
func WithMaxOuterIterations(n int) Option {
	return func(s *Solver) { s.maxOuter = n }
}

// WithMaxInnerIterations caps projected-gradient steps per outer iteration
func WithMaxInnerIterations(n int) Option {
	return func(s *Solver) { s.maxInner = n }
}

// WithTolerance sets the projected-gradient stationarity tolerance, relative
// to the largest gradient component
func WithTolerance(tol float64) Option {
	return func(s *Solver) { s.tolerance = tol }
}

// WithFeasibilityTolerance sets the largest violation counted as feasible
func WithFeasibilityTolerance(tol float64) Option {
	return func(s *Solver) { s.feasibilityTolerance = tol }
}

// WithInitialPenalty sets the starting penalty parameter
func WithInitialPenalty(mu float64) Option {
	return func(s *Solver) { s.initialPenalty = mu }
}

// NewSolver creates a solver
func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		logger:               logging.Nop(),
		maxOuter:             100,
		maxInner:             5000,
		tolerance:            1e-10,
		feasibilityTolerance: 1e-8,
		initialPenalty:       10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the raw optimizer outcome. A failed solve is reported through
// Success and Status, not as an error.
type Result struct {
	Codes           []string  `json:"codes"`
	X               []float64 `json:"x"`
	Success         bool      `json:"success"`
	Status          Status    `json:"status"`
	Message         string    `json:"message"`
	OuterIterations int       `json:"outer_iterations"`
	InnerIterations int       `json:"inner_iterations"`
	Entropy         float64   `json:"entropy"`
	MaxViolation    float64   `json:"max_violation"`

	// Conditional holds the joint-to-conditional post-processing output when
	// conditioned variables were configured
	Conditional []float64 `json:"conditional,omitempty"`
}

// Solve validates cfg, compiles it and maximizes entropy. Configuration
// problems are returned as errors before the optimizer runs.
func (s *Solver) Solve(ctx context.Context, cfg *Config) (*Result, error) {
	p, err := cfg.Compile()
	if err != nil {
		return nil, err
	}
	return s.SolveProblem(ctx, p)
}

// SolveProblem maximizes entropy for an already compiled problem. The
// context is checked between outer iterations.
func (s *Solver) SolveProblem(ctx context.Context, p *Problem) (*Result, error) {
	n := p.Layout.Size()
	lower := make([]float64, n)
	for i, lo := range p.Lower {
		lower[i] = math.Max(lo, floor)
	}
	upper := make([]float64, n)
	for i, hi := range p.Upper {
		upper[i] = math.Max(hi, lower[i])
	}

	al := &augmented{
		eq:     p.Equality,
		ineq:   p.Inequality,
		lambda: make([]float64, len(p.Equality)),
		nu:     make([]float64, len(p.Inequality)),
		mu:     s.initialPenalty,
	}

	x := append([]float64(nil), p.Initial...)
	project(x, lower, upper)

	s.logger.Info("solving maximum entropy problem",
		zap.Int("cells", n),
		zap.Int("equality_constraints", len(p.Equality)),
		zap.Int("inequality_constraints", len(p.Inequality)))

	res := &Result{Codes: append([]string(nil), p.Layout.Codes...), Status: StatusIterationLimit}
	violation := al.violation(x)
	for outer := 1; outer <= s.maxOuter; outer++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.OuterIterations = outer

		inner := s.minimize(al, x, lower, upper)
		res.InnerIterations += inner.iterations

		prev := violation
		violation = al.violation(x)
		s.logger.Debug("outer iteration",
			zap.Int("iteration", outer),
			zap.Float64("penalty", al.mu),
			zap.Float64("violation", violation),
			zap.Float64("stationarity", inner.stationarity),
			zap.Int("inner_iterations", inner.iterations))

		// cells driven to zero by an equality keep log(x) large near the
		// floor, so a feasible iterate the line search cannot improve is final
		if violation <= s.feasibilityTolerance && (inner.converged || inner.stalled) {
			res.Status = StatusConverged
			break
		}
		if inner.stalled && al.mu >= maxPenalty {
			res.Status = StatusStalled
			break
		}

		al.updateMultipliers(x)
		if violation > s.feasibilityTolerance && violation > 0.25*prev {
			al.mu = math.Min(al.mu*10, maxPenalty)
		}
	}

	res.X = x
	res.MaxViolation = violation
	res.Success = res.Status == StatusConverged
	res.Message = res.Status.String()
	res.Entropy = stat.Entropy(x)
	if len(p.Conditioned) > 0 {
		res.Conditional = Conditionalize(p.Layout, x, p.Conditioned)
	}

	s.logger.Info("maximum entropy solve finished",
		zap.Bool("success", res.Success),
		zap.Stringer("status", res.Status),
		zap.Int("outer_iterations", res.OuterIterations),
		zap.Float64("entropy", res.Entropy),
		zap.Float64("max_violation", res.MaxViolation))
	return res, nil
}

// augmented is the augmented Lagrangian of negative entropy
type augmented struct {
	eq, ineq   []*Constraint
	lambda, nu []float64
	mu         float64
}

// value returns the augmented objective at x and writes its gradient to g
func (a *augmented) value(x, g []float64) float64 {
	f := 0.0
	for i, v := range x {
		lv := math.Log(v)
		f += v * lv
		g[i] = lv + 1
	}
	for j, c := range a.eq {
		h := c.Value(x)
		f += a.lambda[j]*h + 0.5*a.mu*h*h
		c.Expr.Grad(x, a.lambda[j]+a.mu*h, g)
	}
	for k, c := range a.ineq {
		shifted := a.nu[k] - a.mu*c.Value(x)
		if shifted > 0 {
			f += (shifted*shifted - a.nu[k]*a.nu[k]) / (2 * a.mu)
			c.Expr.Grad(x, -shifted, g)
		} else {
			f -= a.nu[k] * a.nu[k] / (2 * a.mu)
		}
	}
	return f
}

func (a *augmented) updateMultipliers(x []float64) {
	for j, c := range a.eq {
		a.lambda[j] += a.mu * c.Value(x)
	}
	for k, c := range a.ineq {
		a.nu[k] = math.Max(0, a.nu[k]-a.mu*c.Value(x))
	}
}

func (a *augmented) violation(x []float64) float64 {
	worst := 0.0
	for _, c := range a.eq {
		worst = math.Max(worst, c.Violation(x))
	}
	for _, c := range a.ineq {
		worst = math.Max(worst, c.Violation(x))
	}
	return worst
}

type innerResult struct {
	iterations   int
	stationarity float64
	converged    bool
	stalled      bool
}

// minimize runs spectral projected gradient on the augmented objective,
// updating x in place
func (s *Solver) minimize(a *augmented, x, lower, upper []float64) innerResult {
	n := len(x)
	g := make([]float64, n)
	gNext := make([]float64, n)
	xNext := make([]float64, n)
	d := make([]float64, n)
	step := make([]float64, n)
	diff := make([]float64, n)

	f := a.value(x, g)
	alpha := 1.0
	var res innerResult
	for res.iterations < s.maxInner {
		res.stationarity = projectedGradientNorm(x, g, lower, upper, d, s.feasibilityTolerance)
		if res.stationarity <= s.tolerance {
			res.converged = true
			return res
		}
		res.iterations++

		// d = P(x - alpha*g) - x
		floats.AddScaledTo(d, x, -alpha, g)
		project(d, lower, upper)
		floats.Sub(d, x)
		slope := floats.Dot(g, d)
		if slope >= 0 {
			res.stalled = true
			return res
		}

		t := 1.0
		var fNext float64
		for {
			floats.AddScaledTo(xNext, x, t, d)
			fNext = a.value(xNext, gNext)
			if fNext <= f+armijo*t*slope+slack*math.Max(1, math.Abs(f)) {
				break
			}
			t *= 0.5
			if t < 1e-20 {
				res.stalled = true
				return res
			}
		}

		floats.SubTo(step, xNext, x)
		floats.SubTo(diff, gNext, g)
		sy := floats.Dot(step, diff)
		if sy <= 0 {
			alpha = 1e10
		} else {
			alpha = math.Min(1e10, math.Max(1e-10, floats.Dot(step, step)/sy))
		}

		copy(x, xNext)
		copy(g, gNext)
		f = fNext
	}
	res.stationarity = projectedGradientNorm(x, g, lower, upper, d, s.feasibilityTolerance)
	res.converged = res.stationarity <= s.tolerance
	return res
}

// projectedGradientNorm returns ||P(x - g) - x||_inf scaled by the largest
// gradient component, using buf as scratch. Cells within active of a bound
// whose gradient points out of the box count as pinned.
func projectedGradientNorm(x, g, lower, upper, buf []float64, active float64) float64 {
	floats.SubTo(buf, x, g)
	project(buf, lower, upper)
	floats.Sub(buf, x)
	for i := range buf {
		if (x[i]-lower[i] <= active && g[i] > 0) || (upper[i]-x[i] <= active && g[i] < 0) {
			buf[i] = 0
		}
	}
	return floats.Norm(buf, math.Inf(1)) / math.Max(1, floats.Norm(g, math.Inf(1)))
}

func project(x, lower, upper []float64) {
	for i := range x {
		x[i] = math.Min(upper[i], math.Max(lower[i], x[i]))
	}
}
