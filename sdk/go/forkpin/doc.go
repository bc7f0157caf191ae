// Package forkpin lets a Go tool decide, at startup, whether to load a
// dependency from its local source-controlled fork or from the public
// registry.
//
// The local fork is the default. Only the override variable set to exactly
// "0" selects the registry, and a missing fork is an error rather than a
// silent registry fallback.
//
// Usage:
//
//	fp, err := forkpin.New(forkpin.WithForkPath("~/src/deepagents-cli"))
//	if err != nil {
//	    return err
//	}
//	defer fp.Close()
//
//	err = fp.Load(ctx, func(ctx context.Context, sel forkpin.Selection) error {
//	    if sel.UseFork() {
//	        return loadFrom(sel.Path)
//	    }
//	    return loadFromRegistry()
//	})
//
// The SDK links directly against internal packages. External users import
// github.com/ppiankov/forkpin/sdk/go/forkpin.
package forkpin
