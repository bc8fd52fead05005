package domain

import (
	"fmt"
	"math"
)

// Parameter bounds checked at construction.
const (
	MinParamValue     = 1e-10 // floor for amplitude, frequency and decay rate entries
	MaxNoiseAmplitude = 1.0   // bound on |sigma|
)

// Field names one parameter of a ParameterSet. Channel fields hold one value
// per channel, scalar fields hold a single value.
type Field int

const (
	FieldAmplitude Field = iota
	FieldFrequency
	FieldPhase
	FieldDecayAmplitude
	FieldDecayRate
	FieldA
	FieldB
	FieldX0
	FieldAlpha0
	FieldAlpha1
	FieldAlpha2
	FieldTau
	FieldEta
	FieldGamma
	FieldSigma
	FieldBeta

	fieldCount
)

const channelFieldCount = int(FieldA)

var fieldNames = [fieldCount]string{
	"amplitude", "frequency", "phase", "decayAmplitude", "decayRate",
	"a", "b", "x0",
	"alpha0", "alpha1", "alpha2",
	"tau", "eta", "gamma",
	"sigma", "beta",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// IsChannel reports whether f holds one value per channel.
func (f Field) IsChannel() bool {
	return f >= 0 && int(f) < channelFieldCount
}

// Fields lists every field in flattening order.
func Fields() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// ChannelFields lists the per-channel fields in flattening order.
func ChannelFields() []Field {
	return Fields()[:channelFieldCount]
}

// ScalarFields lists the scalar fields in flattening order.
func ScalarFields() []Field {
	return Fields()[channelFieldCount:]
}

// Values is the plain, mutable form of a parameter set. It is only used to
// construct a ParameterSet and to read one back out.
type Values struct {
	ChannelCount int

	Amplitude      []float64
	Frequency      []float64
	Phase          []float64
	DecayAmplitude []float64
	DecayRate      []float64

	// Shape of the softplus integrand a(x-x0)^2 + b
	A  float64
	B  float64
	X0 float64

	// Polynomial coefficients for t^2, sin(2πt), log(1+t)
	Alpha0 float64
	Alpha1 float64
	Alpha2 float64

	// Regime switch
	Tau   float64
	Eta   float64
	Gamma float64

	// State-feedback noise
	Sigma float64
	Beta  float64
}

// ParameterSet is an immutable, validated set of signal parameters.
// Every modification returns a new instance that shares no memory with the
// receiver.
type ParameterSet struct {
	channels [channelFieldCount][]float64
	scalars  [int(fieldCount) - channelFieldCount]float64
}

// NewParameterSet validates v and returns a ParameterSet holding a deep copy of it.
func NewParameterSet(v Values) (ParameterSet, error) {
	p := ParameterSet{}
	p.channels[FieldAmplitude] = cloneFloats(v.Amplitude)
	p.channels[FieldFrequency] = cloneFloats(v.Frequency)
	p.channels[FieldPhase] = cloneFloats(v.Phase)
	p.channels[FieldDecayAmplitude] = cloneFloats(v.DecayAmplitude)
	p.channels[FieldDecayRate] = cloneFloats(v.DecayRate)

	p.scalars = [len(p.scalars)]float64{
		v.A, v.B, v.X0,
		v.Alpha0, v.Alpha1, v.Alpha2,
		v.Tau, v.Eta, v.Gamma,
		v.Sigma, v.Beta,
	}

	if err := p.validate(v.ChannelCount); err != nil {
		return ParameterSet{}, err
	}
	return p, nil
}

// MustParameterSet is NewParameterSet for values known to be valid. It panics otherwise.
func MustParameterSet(v Values) ParameterSet {
	p, err := NewParameterSet(v)
	if err != nil {
		panic(err)
	}
	return p
}

func (p ParameterSet) validate(channelCount int) error {
	var errs ValidationErrors

	if channelCount <= 0 {
		errs = append(errs, ValidationError{Field: "channelCount", Message: "must be positive"})
		return errs
	}

	for _, f := range ChannelFields() {
		if len(p.channels[f]) != channelCount {
			errs = append(errs, ValidationError{
				Field:   f.String(),
				Message: fmt.Sprintf("length %d does not match channelCount %d", len(p.channels[f]), channelCount),
			})
			continue
		}
		for i, x := range p.channels[f] {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", f, i),
					Message: "must be finite",
				})
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for _, f := range []Field{FieldAmplitude, FieldFrequency, FieldDecayRate} {
		for i, x := range p.channels[f] {
			if x < MinParamValue {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", f, i),
					Message: fmt.Sprintf("%g is below minimum %g", x, MinParamValue),
				})
			}
		}
	}

	for _, f := range ScalarFields() {
		x := p.Scalar(f)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			errs = append(errs, ValidationError{Field: f.String(), Message: "must be finite"})
		}
	}

	if sigma := p.Scalar(FieldSigma); math.Abs(sigma) > MaxNoiseAmplitude {
		errs = append(errs, ValidationError{
			Field:   FieldSigma.String(),
			Message: fmt.Sprintf("|%g| exceeds maximum noise amplitude %g", sigma, MaxNoiseAmplitude),
		})
	}

	return errs.OrNil()
}

// ChannelCount returns the number of channels.
func (p ParameterSet) ChannelCount() int {
	return len(p.channels[FieldAmplitude])
}

// IsZero reports whether p is the zero value (never constructed).
func (p ParameterSet) IsZero() bool {
	return p.ChannelCount() == 0
}

// Channel returns entry i of a channel field.
func (p ParameterSet) Channel(f Field, i int) float64 {
	if !f.IsChannel() {
		panic(fmt.Sprintf("domain: %s is not a channel field", f))
	}
	return p.channels[f][i]
}

// ChannelValues returns a copy of a channel field.
func (p ParameterSet) ChannelValues(f Field) []float64 {
	if !f.IsChannel() {
		panic(fmt.Sprintf("domain: %s is not a channel field", f))
	}
	return cloneFloats(p.channels[f])
}

// Scalar returns the value of a scalar field.
func (p ParameterSet) Scalar(f Field) float64 {
	if f.IsChannel() || f >= fieldCount {
		panic(fmt.Sprintf("domain: %s is not a scalar field", f))
	}
	return p.scalars[int(f)-channelFieldCount]
}

// Values returns a deep copy of p in plain form.
func (p ParameterSet) Values() Values {
	return Values{
		ChannelCount:   p.ChannelCount(),
		Amplitude:      p.ChannelValues(FieldAmplitude),
		Frequency:      p.ChannelValues(FieldFrequency),
		Phase:          p.ChannelValues(FieldPhase),
		DecayAmplitude: p.ChannelValues(FieldDecayAmplitude),
		DecayRate:      p.ChannelValues(FieldDecayRate),
		A:              p.Scalar(FieldA),
		B:              p.Scalar(FieldB),
		X0:             p.Scalar(FieldX0),
		Alpha0:         p.Scalar(FieldAlpha0),
		Alpha1:         p.Scalar(FieldAlpha1),
		Alpha2:         p.Scalar(FieldAlpha2),
		Tau:            p.Scalar(FieldTau),
		Eta:            p.Scalar(FieldEta),
		Gamma:          p.Scalar(FieldGamma),
		Sigma:          p.Scalar(FieldSigma),
		Beta:           p.Scalar(FieldBeta),
	}
}

// clone returns an independent copy without re-validating.
func (p ParameterSet) clone() ParameterSet {
	out := ParameterSet{scalars: p.scalars}
	for f := range p.channels {
		out.channels[f] = cloneFloats(p.channels[f])
	}
	return out
}

// WithChannelDelta returns a copy of p with delta added to entry i of channel field f.
func (p ParameterSet) WithChannelDelta(f Field, i int, delta float64) (ParameterSet, error) {
	if !f.IsChannel() {
		return ParameterSet{}, ValidationError{Field: f.String(), Message: "not a channel field"}
	}
	if i < 0 || i >= p.ChannelCount() {
		return ParameterSet{}, ValidationError{
			Field:   f.String(),
			Message: fmt.Sprintf("index %d out of range [0, %d)", i, p.ChannelCount()),
		}
	}
	out := p.clone()
	out.channels[f][i] += delta
	if err := out.validate(out.ChannelCount()); err != nil {
		return ParameterSet{}, err
	}
	return out, nil
}

// WithScalarDelta returns a copy of p with delta added to scalar field f.
func (p ParameterSet) WithScalarDelta(f Field, delta float64) (ParameterSet, error) {
	if f.IsChannel() || f < 0 || f >= fieldCount {
		return ParameterSet{}, ValidationError{Field: f.String(), Message: "not a scalar field"}
	}
	out := p.clone()
	out.scalars[int(f)-channelFieldCount] += delta
	if err := out.validate(out.ChannelCount()); err != nil {
		return ParameterSet{}, err
	}
	return out, nil
}

// Perturb adds delta to one component: entry i of a channel field, or the
// scalar field itself (i is ignored).
func (p ParameterSet) Perturb(f Field, i int, delta float64) (ParameterSet, error) {
	if f.IsChannel() {
		return p.WithChannelDelta(f, i, delta)
	}
	return p.WithScalarDelta(f, delta)
}

// Len returns the number of scalar components in the flattened form.
func (p ParameterSet) Len() int {
	return FlatLen(p.ChannelCount())
}

// FlatLen returns the flattened length of a set with channelCount channels.
func FlatLen(channelCount int) int {
	return channelFieldCount*channelCount + int(fieldCount) - channelFieldCount
}

// Flatten returns every component in Fields() order, channel fields expanded.
func (p ParameterSet) Flatten() []float64 {
	out := make([]float64, 0, p.Len())
	for f := range p.channels {
		out = append(out, p.channels[f]...)
	}
	return append(out, p.scalars[:]...)
}

// WithFlat returns a new validated set built from a vector in Flatten order.
func (p ParameterSet) WithFlat(x []float64) (ParameterSet, error) {
	if len(x) != p.Len() {
		return ParameterSet{}, ValidationError{
			Field:   "vector",
			Message: fmt.Sprintf("length %d does not match %d components", len(x), p.Len()),
		}
	}
	n := p.ChannelCount()
	out := ParameterSet{}
	for f := range out.channels {
		out.channels[f] = cloneFloats(x[f*n : (f+1)*n])
	}
	copy(out.scalars[:], x[channelFieldCount*n:])
	if err := out.validate(n); err != nil {
		return ParameterSet{}, err
	}
	return out, nil
}

// FlatIndex returns the position of entry i of field f in Flatten order for
// a set with channelCount channels. i is ignored for scalar fields.
func FlatIndex(f Field, i, channelCount int) int {
	if f.IsChannel() {
		return int(f)*channelCount + i
	}
	return channelFieldCount*channelCount + int(f) - channelFieldCount
}

// Project clamps a vector in Flatten order onto the valid region: bounded
// channel entries are raised to MinParamValue and sigma is limited to
// ±MaxNoiseAmplitude. It returns the number of components changed.
func Project(x []float64, channelCount int) int {
	changed := 0
	for _, f := range []Field{FieldAmplitude, FieldFrequency, FieldDecayRate} {
		for i := 0; i < channelCount; i++ {
			k := FlatIndex(f, i, channelCount)
			if x[k] < MinParamValue {
				x[k] = MinParamValue
				changed++
			}
		}
	}
	k := FlatIndex(FieldSigma, 0, channelCount)
	if x[k] > MaxNoiseAmplitude {
		x[k] = MaxNoiseAmplitude
		changed++
	} else if x[k] < -MaxNoiseAmplitude {
		x[k] = -MaxNoiseAmplitude
		changed++
	}
	return changed
}

// DefaultParameters returns a moderate, valid parameter set for n channels.
func DefaultParameters(n int) ParameterSet {
	if n <= 0 {
		n = 1
	}
	v := Values{
		ChannelCount:   n,
		Amplitude:      make([]float64, n),
		Frequency:      make([]float64, n),
		Phase:          make([]float64, n),
		DecayAmplitude: make([]float64, n),
		DecayRate:      make([]float64, n),
		A:              1.0,
		B:              0.0,
		X0:             0.5,
		Alpha0:         0.01,
		Alpha1:         0.1,
		Alpha2:         0.05,
		Tau:            5.0,
		Eta:            0.2,
		Gamma:          1.0,
		Sigma:          0.01,
		Beta:           0.05,
	}
	for i := 0; i < n; i++ {
		v.Amplitude[i] = 0.5
		v.Frequency[i] = 0.1
		if n > 1 {
			v.Frequency[i] = 0.1 + 0.9*float64(i)/float64(n-1)
		}
		v.DecayAmplitude[i] = 0.3
		v.DecayRate[i] = 0.1
	}
	return MustParameterSet(v)
}

func cloneFloats(s []float64) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s))
	copy(out, s)
	return out
}
