package debugger

import (
	"github.com/ferros-go/ferros/symbols"
	"github.com/ferros-go/ferros/types"
	"github.com/ferros-go/ferros/unwind"
)

// imageSourceAdapter narrows *symbols.Cache to unwind.ImageSource.
// *symbols.BinaryImage already has every method unwind.CFIImage needs;
// the adapter only exists because Go does not let a method returning
// the concrete *BinaryImage satisfy an interface method that must
// return the CFIImage interface.
type imageSourceAdapter struct {
	cache *symbols.Cache
}

func (a *imageSourceAdapter) ImageForAddress(addr types.Address) (unwind.CFIImage, bool) {
	img, ok := a.cache.ImageForAddress(addr)
	if !ok {
		return nil, false
	}
	return img, true
}

func (a *imageSourceAdapter) Symbolicate(addr types.Address) ([]types.SymbolFrame, bool) {
	return a.cache.Symbolicate(addr)
}
