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

package backends

// UnaryOp enumerates the elementwise unary operations a Backend implements.
type UnaryOp int

const (
	UnaryInvalid UnaryOp = iota
	UnaryNeg
	UnaryAbs
	UnaryExp
	UnaryRelu
	UnarySigmoid
	UnaryTanh
)

var unaryOpNames = [...]string{"Invalid", "Neg", "Abs", "Exp", "Relu", "Sigmoid", "Tanh"}

// String implements fmt.Stringer.
func (op UnaryOp) String() string {
	if op < 0 || int(op) >= len(unaryOpNames) {
		return "Invalid"
	}
	return unaryOpNames[op]
}

// BinaryOp enumerates the elementwise binary operations a Backend implements.
// All of them broadcast their operands.
type BinaryOp int

const (
	BinaryInvalid BinaryOp = iota
	BinaryAdd
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMax
	BinaryMin
)

var binaryOpNames = [...]string{"Invalid", "Add", "Sub", "Mul", "Div", "Max", "Min"}

// String implements fmt.Stringer.
func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryOpNames) {
		return "Invalid"
	}
	return binaryOpNames[op]
}
