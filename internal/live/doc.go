// Package live evaluates expressions over batches of halos.
//
// Functions are looked up in a Registry built from a static table of
// descriptors. Each descriptor declares how its arguments arrive: as
// evaluated columns, as constants, or as unevaluated property and link
// names. Evaluation is vectorized over the batch and always yields one row
// per input halo; missing data becomes a null row rather than an error.
//
// Halo-returning functions (match, later, earlier, latest, earliest, link)
// produce halo references. A chain such as later(5).Mvir evaluates its
// right side on the referenced halos and scatters the results back.
package live
