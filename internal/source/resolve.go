package source

// Options tunes resolution. The zero value is the default policy.
type Options struct {
	// Strict rejects override values other than the sentinel instead of
	// treating them as unset.
	Strict bool
}

// Resolve applies the default policy to c.
//
// Evaluation order:
//  1. Override set to the sentinel: registry, unconditionally.
//  2. Strict mode and override set to anything else: InvalidOverrideError.
//  3. Fork probe valid: local fork.
//  4. Otherwise: LocalForkMissingError. There is no registry fallback.
func Resolve(c Context) (Decision, error) {
	return ResolveWithOptions(c, Options{})
}

// ResolveWithOptions is Resolve with explicit options.
func ResolveWithOptions(c Context, opts Options) (Decision, error) {
	if c.OverrideSet && c.Override == Sentinel {
		return Decision{
			Kind:          Registry,
			Reason:        OverrideRequested,
			ForkPath:      c.ForkPath,
			OverrideVar:   c.OverrideVar,
			OverrideValue: c.Override,
		}, nil
	}

	if c.OverrideSet && opts.Strict {
		return Decision{}, &InvalidOverrideError{Var: c.OverrideVar, Value: c.Override}
	}

	if !c.ForkValid {
		return Decision{}, &LocalForkMissingError{Path: c.ForkPath, OverrideVar: c.OverrideVar}
	}

	d := Decision{
		Kind:        LocalFork,
		Reason:      DefaultPolicy,
		ForkPath:    c.ForkPath,
		OverrideVar: c.OverrideVar,
	}
	if c.OverrideSet {
		d.OverrideValue = c.Override
	}
	return d, nil
}
