// Package initwfn implements weight initializers that wrap Gorgonia
// InitWFn's so that they can be JSON serialized into configuration files
// and applied layer by layer when a network is constructed.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU      Type = "GlorotU"
	GlorotN      Type = "GlorotN"
	HeU          Type = "HeU"
	HeN          Type = "HeN"
	Zeroes       Type = "Zeroes"
	Ones         Type = "Ones"
	Constant     Type = "Constant"
	Uniform      Type = "Uniform"
	Gaussian     Type = "Gaussian"
	FanInUniform Type = "FanInUniform"
)

// registered maps each Type to the concrete Config it is decoded into
var registered = map[string]reflect.Type{
	string(GlorotU):      reflect.TypeOf(GlorotUConfig{}),
	string(GlorotN):      reflect.TypeOf(GlorotNConfig{}),
	string(HeU):          reflect.TypeOf(HeUConfig{}),
	string(HeN):          reflect.TypeOf(HeNConfig{}),
	string(Zeroes):       reflect.TypeOf(ZeroesConfig{}),
	string(Ones):         reflect.TypeOf(OnesConfig{}),
	string(Constant):     reflect.TypeOf(ConstantConfig{}),
	string(Uniform):      reflect.TypeOf(UniformConfig{}),
	string(Gaussian):     reflect.TypeOf(GaussianConfig{}),
	string(FanInUniform): reflect.TypeOf(FanInUniformConfig{}),
}

// InitWFn wraps Gorgonia InitWFn so that they can be JSON marshalled and
// unmarshalled.
//
// An InitWFn is not safe for concurrent use: initializers that draw
// from a seeded source advance that source each time a layer is
// initialized.
type InitWFn struct {
	initWFn G.InitWFn
	src     rand.Source
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	if c == nil {
		return nil, fmt.Errorf("newinitwfn: nil config")
	}
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// NewDefault returns the default weight initializer: a FanInUniform
// initializer seeded from the current time.
func NewDefault() (*InitWFn, error) {
	return NewFanInUniform(uint64(time.Now().UnixNano()))
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// ForLayer returns the Gorgonia InitWFn that should be used to
// initialize the weights and bias of a layer with fanIn inputs.
// Initializers whose distribution does not depend on the layer return
// the wrapped InitWFn unchanged.
func (w *InitWFn) ForLayer(fanIn int) G.InitWFn {
	layered, ok := w.Config.(layerConfig)
	if !ok {
		return w.initWFn
	}

	if w.src == nil {
		w.src = rand.NewSource(layered.seed())
	}
	return layered.createForLayer(fanIn, w.src)
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", w.Type, w.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (w *InitWFn) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(data, "Type", "Config",
		registered)
	if err != nil {
		return fmt.Errorf("unmarshaljson: %v", err)
	}

	w.Type = typeName
	w.Config = config
	w.initWFn = w.Config.Create()
	w.src = nil

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned. The Config
// is decoded from its raw JSON so that integer fields such as seeds keep
// their full precision.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	var typeName string
	if raw, ok := m[typeJsonField]; !ok ||
		json.Unmarshal(raw, &typeName) != nil {
		return nil, "", fmt.Errorf("missing or invalid %q field",
			typeJsonField)
	}
	ty, found := customTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unknown initializer type %q", typeName)
	}
	value := reflect.New(ty).Interface()

	// A missing configuration leaves the zero value, which is valid for
	// initializers without parameters
	if raw, ok := m[valueJsonField]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, value); err != nil {
			return nil, "", err
		}
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}

// layerConfig is a Config whose distribution depends on the number of
// inputs to the layer being initialized.
type layerConfig interface {
	Config

	seed() uint64
	createForLayer(fanIn int, src rand.Source) G.InitWFn
}
