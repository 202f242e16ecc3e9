package live

import "github.com/roach88/halodb/internal/expr"

// builtinTable is the static table behind Builtins.
func builtinTable() []Descriptor {
	value := ArgSpec{Kind: ArgValue}
	return []Descriptor{
		{
			Name:         "match",
			Args:         []ArgSpec{{Kind: ArgFixed}},
			ReturnsHalos: true,
			Impl:         matchImpl,
			Doc:          `match("sim/ts"): the major counterpart in a timestep, or in the nearest-time timestep of a simulation; None gives null rows.`,
		},
		{
			Name:         "later",
			Args:         []ArgSpec{{Kind: ArgFixedNumeric}},
			ReturnsHalos: true,
			Impl:         laterImpl,
			Doc:          "later(n): the major counterpart n timesteps later.",
		},
		{
			Name:         "earlier",
			Args:         []ArgSpec{{Kind: ArgFixedNumeric}},
			ReturnsHalos: true,
			Impl:         earlierImpl,
			Doc:          "earlier(n): the major counterpart n timesteps earlier.",
		},
		{
			Name:         "latest",
			ReturnsHalos: true,
			Impl:         latestImpl,
			Doc:          "latest(): the major counterpart in the simulation's final timestep.",
		},
		{
			Name:         "earliest",
			ReturnsHalos: true,
			Impl:         earliestImpl,
			Doc:          "earliest(): the major counterpart in the simulation's first timestep.",
		},
		{
			Name: "has_property",
			Args: []ArgSpec{{Kind: ArgPropertyRef}},
			Impl: hasPropertyImpl,
			Doc:  "has_property(name): whether a value is stored. Never computes the property.",
		},
		{
			Name: "has_link",
			Args: []ArgSpec{{Kind: ArgLinkRef}},
			Impl: hasLinkImpl,
			Doc:  "has_link(name): whether an outgoing link of that relation exists.",
		},
		{
			Name:         "link",
			Args:         []ArgSpec{{Kind: ArgLinkRef}, {Kind: ArgPropertyRef, Optional: true}, {Kind: ArgFixedString, Optional: true}},
			ReturnsHalos: true,
			Impl:         linkImpl,
			Doc:          `link(name[, determiner[, "max"|"min"]]): one linked halo, the strongest link or the one with the extreme determiner.`,
		},
		{
			Name: "t",
			Impl: timeImpl,
			Doc:  "t(): time of the halo's timestep in Gyr.",
		},
		{
			Name: "z",
			Impl: redshiftImpl,
			Doc:  "z(): redshift of the halo's timestep.",
		},
		{
			Name: "halo_number",
			Impl: haloNumberImpl,
			Doc:  "halo_number(): the halo's number within its timestep.",
		},
		{
			Name: "raw",
			Args: []ArgSpec{{Kind: ArgPropertyRef}},
			Impl: rawImpl,
			Doc:  "raw(name): the stored value, without reassembly or live calculation.",
		},
		{
			Name: "reassemble",
			Args: []ArgSpec{{Kind: ArgPropertyRef}, {Kind: ArgFixedString, Optional: true}},
			Impl: reassembleImpl,
			Doc:  `reassemble(name[, "raw"|"place"|"major"|"sum"]): a time-chunked histogram over the halo's history.`,
		},
		{Name: expr.OpAdd, Args: []ArgSpec{value, value}, Impl: arithmetic(addValues), Doc: "a + b"},
		{Name: expr.OpSubtract, Args: []ArgSpec{value, value}, Impl: arithmetic(subtractValues), Doc: "a - b"},
		{Name: expr.OpMultiply, Args: []ArgSpec{value, value}, Impl: arithmetic(multiplyValues), Doc: "a * b"},
		{Name: expr.OpDivide, Args: []ArgSpec{value, value}, Impl: arithmetic(divideValues), Doc: "a / b"},
		{Name: expr.OpGreater, Args: []ArgSpec{value, value}, Impl: arithmetic(greaterValues), Doc: "a > b"},
		{Name: expr.OpLess, Args: []ArgSpec{value, value}, Impl: arithmetic(lessValues), Doc: "a < b"},
	}
}
