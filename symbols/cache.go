package symbols

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ferros-go/ferros/ferrerr"
	"github.com/ferros-go/ferros/types"
)

const defaultImageCacheCapacity = 32

// Cache implements component M: load_image/image_for_address/
// symbolicate/describe_type, backed by an LRU of BinaryImages so a long
// session does not retain every touched image forever.
type Cache struct {
	mu     sync.Mutex
	images *lru.Cache[types.ImageId, *BinaryImage]
}

// NewCache builds a symbol cache holding up to capacity images
// (0 uses the default of 32).
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultImageCacheCapacity
	}
	evicted := func(_ types.ImageId, img *BinaryImage) { _ = img.Close() }
	c, _ := lru.NewWithEvict[types.ImageId, *BinaryImage](capacity, evicted)
	return &Cache{images: c}
}

// LoadImage returns the cached image for desc if present, else parses
// and caches it.
func (c *Cache) LoadImage(desc types.ImageDescriptor) (*BinaryImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := types.ImageId{CanonicalPath: desc.Path, LoadAddress: desc.LoadAddress}
	if img, ok := c.images.Get(id); ok {
		return img, nil
	}

	img, err := LoadImage(desc)
	if err != nil {
		return nil, err
	}
	c.images.Add(img.Id, img)
	return img, nil
}

// ImageForAddress returns the loaded image whose runtime range contains
// addr, or false if none does.
func (c *Cache) ImageForAddress(addr types.Address) (*BinaryImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.images.Keys() {
		img, ok := c.images.Peek(id)
		if !ok {
			continue
		}
		if img.Contains(addr) {
			return img, true
		}
	}
	return nil, false
}

// Symbolicate converts addr to a file address within its owning image
// and resolves the outer-to-inner SymbolFrame chain (more than one
// frame only when addr falls within an inlined call chain). Returns
// (nil, false) when addr is outside any loaded image or no frame has a
// symbol.
func (c *Cache) Symbolicate(addr types.Address) ([]types.SymbolFrame, bool) {
	img, ok := c.ImageForAddress(addr)
	if !ok || img.dwarf == nil {
		return nil, false
	}
	fileAddr := img.RuntimeToFile(addr)
	frames := resolveFrames(img.dwarf, fileAddr)
	if len(frames) == 0 {
		return nil, false
	}
	return frames, true
}

// DescribeType walks the image's compile/type units looking for a
// struct/class/union/enumeration DIE matching name (or its lenient
// "::name" suffix form), per component M's type-summary extraction.
func (c *Cache) DescribeType(img *BinaryImage, name string) (types.TypeSummary, error) {
	if img.dwarf == nil {
		return types.TypeSummary{}, ferrerr.New(ferrerr.KindInvalidArgument, "image has no DWARF info")
	}
	summary, ok := describeType(img.dwarf, name)
	if !ok {
		return types.TypeSummary{}, ferrerr.New(ferrerr.KindInvalidArgument, "no type named %q found", name)
	}
	return summary, nil
}

// Close releases every cached image's mapping.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images.Purge()
}
