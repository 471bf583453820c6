/*
 *	Copyright 2026 The Weft Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package backends defines the interface a numerical execution engine needs
// to implement to be used by Weft.
//
// The traced core never performs tensor math itself: when a finalized model
// is replayed, each layer defers its numeric work to a Backend. The
// interface is deliberately narrow -- the handful of primitives the layer
// catalog requires -- and every call is treated as an opaque synchronous
// computation: it returns when the result is ready.
//
// Backends register themselves by name (see Register); the default backend
// is selected by the WEFT_BACKEND environment variable, the DefaultConfig
// variable, or the first registered backend, in that order. A pure Go
// reference backend lives in backends/simplego and registers itself as "go":
//
//	import _ "github.com/weftml/weft/backends/simplego"
package backends

import (
	"os"
	"strings"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/weftml/weft/types/tensors"
)

// Backend is the contract a numerical execution engine implements.
//
// All operations return freshly allocated tensors; inputs are never
// modified. Implementations must be safe for concurrent calls, since
// read-only model invocations may proceed in parallel.
type Backend interface {
	// Name returns the short name the backend was registered with. E.g.: "go".
	Name() string

	// Description is a longer description of the backend for pretty-printing.
	Description() string

	// Unary applies an elementwise unary operation.
	Unary(op UnaryOp, x *tensors.Tensor) (*tensors.Tensor, error)

	// Binary applies an elementwise binary operation with NumPy-style
	// broadcasting between the operand shapes.
	Binary(op BinaryOp, lhs, rhs *tensors.Tensor) (*tensors.Tensor, error)

	// MatMul multiplies the last two axes of lhs and rhs; leading axes are
	// treated as batch dimensions and must match.
	MatMul(lhs, rhs *tensors.Tensor) (*tensors.Tensor, error)

	// Concat concatenates the operands along the given axis. All other axes
	// must have matching dimensions.
	Concat(axis int, operands ...*tensors.Tensor) (*tensors.Tensor, error)

	// Reshape returns a tensor with the same data and the new dimensions.
	// The total size must not change.
	Reshape(x *tensors.Tensor, dimensions ...int) (*tensors.Tensor, error)

	// Softmax computes the softmax along the given axis.
	Softmax(x *tensors.Tensor, axis int) (*tensors.Tensor, error)
}

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a backend constructor under the given name. The constructor
// receives the backend-specific part of the configuration string.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if _, found := registeredConstructors[name]; found {
		exceptions.Panicf("backend %q registered twice", name)
	}
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// DefaultConfig is the backend configuration used by New if the WEFT_BACKEND
// environment variable is not set.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default backend
// configuration. The format of the value is
// "<backend_name>:<backend_configuration>", where "<backend_configuration>"
// is backend specific and may be empty.
const ConfigEnvVar = "WEFT_BACKEND"

// New returns a new Backend, resolved in order from the WEFT_BACKEND
// environment variable, DefaultConfig, or the first registered backend.
func New() (Backend, error) {
	if config, found := os.LookupEnv(ConfigEnvVar); found {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// MustNew is like New, but panics in case of error.
func MustNew() Backend {
	backend, err := New()
	if err != nil {
		panic(err)
	}
	return backend
}

// NewWithConfig creates a Backend from a configuration string formatted as
// "<backend_name>:<backend_configuration>". An empty configuration selects
// the first registered backend.
func NewWithConfig(config string) (Backend, error) {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf("no registered backends -- maybe import the default one " +
			`with import _ "github.com/weftml/weft/backends/simplego"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	} else if config != "" {
		backendName = config
		backendConfig = ""
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q", backendName, config)
	}
	backend, err := constructor(backendConfig)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("backends: created %q (%s)", backend.Name(), backend.Description())
	return backend, nil
}
