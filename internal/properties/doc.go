// Package properties is the table of property providers.
//
// A Provider declares which property names it computes, which simulation
// output handler it needs, and whether it needs raw particle data. When
// several providers name the same property, Providing picks one with an
// explicit comparator: the most specialised handler first, then the higher
// declared priority, then the earlier registration.
//
// Providers that need no raw data can be live-calculated from values
// already in the catalog; Registry implements live.PropertySource for the
// evaluator.
package properties
