package main

import (
	"github.com/spf13/pflag"

	"duprank/pkg/attribute"
	"duprank/pkg/criteria"
	"duprank/pkg/report"
)

// criteriaValue is a flag holding a criteria string, validated when set so an
// unknown letter is reported during flag parsing.
type criteriaValue struct {
	spec string
}

var _ pflag.Value = (*criteriaValue)(nil)

func (v *criteriaValue) String() string { return v.spec }

func (v *criteriaValue) Set(s string) error {
	if _, err := criteria.Parse(s, attribute.DefaultRegistry()); err != nil {
		return err
	}
	v.spec = s
	return nil
}

func (*criteriaValue) Type() string { return "criteria" }

// formatValue is a flag holding a report format.
type formatValue struct {
	format report.Format
}

var _ pflag.Value = (*formatValue)(nil)

func (v *formatValue) String() string { return string(v.format) }

func (v *formatValue) Set(s string) error {
	f, err := report.ParseFormat(s)
	if err != nil {
		return err
	}
	v.format = f
	return nil
}

func (*formatValue) Type() string { return "format" }
