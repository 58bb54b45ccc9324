package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Program is an ordered instruction stream.
type Program struct {
	Name         string        `yaml:"name,omitempty"`
	Instructions []Instruction `yaml:"instructions"`
}

// Len returns the number of instructions.
func (p Program) Len() int {
	return len(p.Instructions)
}

// Append adds instructions to the end of the program.
func (p *Program) Append(insts ...Instruction) {
	p.Instructions = append(p.Instructions, insts...)
}

// ParseProgram decodes a YAML program and checks every opcode.
func ParseProgram(data []byte) (Program, error) {
	var p Program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Program{}, fmt.Errorf("parse program: %w", err)
	}

	for i, inst := range p.Instructions {
		if !inst.Opcode.Valid() {
			return Program{}, fmt.Errorf("instruction %d: %w: %q",
				i, ErrUnknownOpcode, inst.Opcode)
		}
	}

	return p, nil
}

// LoadProgramFile reads a YAML program from path.
func LoadProgramFile(path string) (Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Program{}, err
	}

	return ParseProgram(data)
}

// MarshalProgram encodes a program as YAML.
func MarshalProgram(p Program) ([]byte, error) {
	return yaml.Marshal(p)
}

// SaveProgramFile writes a program as YAML to path.
func SaveProgramFile(p Program, path string) error {
	data, err := MarshalProgram(p)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
