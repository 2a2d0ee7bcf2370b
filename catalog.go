package nftgen

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/setanarut/nftgen/internal/ctxlog"
	"github.com/setanarut/nftgen/utils"
)

// DefaultLayerOrder is the bottom-to-top render order of the Orbitalz collection.
var DefaultLayerOrder = []string{"Background", "Orbital", "Eyes", "Nose", "Mouth", "Hat"}

// LayerOption is one selectable image of a group.
type LayerOption struct {
	// Trait name, derived from the file name without extension or weight suffix.
	Name   string
	Weight float64
	Path   string
	Image  image.Image
}

// LayerGroup is a named z-order slot. Groups sort solely by Rank.
type LayerGroup struct {
	Name    string
	Rank    int
	Options []LayerOption
}

// Traits lists the option names in load order.
func (g *LayerGroup) Traits() []string {
	out := make([]string, len(g.Options))
	for i, o := range g.Options {
		out[i] = o.Name
	}
	return out
}

// CompareRank orders groups bottom to top.
func CompareRank(a, b LayerGroup) int {
	return a.Rank - b.Rank
}

// Catalog is the ordered, read-only set of layer groups. It is built once and
// shared by pointer between any number of concurrent generations; nothing
// mutates it after construction.
type Catalog struct {
	root   string
	order  []string
	groups []LayerGroup
}

// NewCatalog orders in-memory groups into a Catalog.
func NewCatalog(groups []LayerGroup, order []string) (*Catalog, error) {
	ordered, err := OrderGroups(groups, order)
	if err != nil {
		return nil, err
	}
	for i := range ordered {
		g := &ordered[i]
		if len(g.Options) == 0 {
			return nil, &CatalogError{Op: "new catalog", Group: g.Name, Err: ErrEmptyGroup}
		}
		for _, o := range g.Options {
			if !validWeight(o.Weight) {
				return nil, &CatalogError{
					Op:    "new catalog",
					Group: g.Name,
					Err:   fmt.Errorf("%w: %q: %v", ErrInvalidWeight, o.Name, o.Weight),
				}
			}
		}
		if err := checkTotalWeight(g.Options); err != nil {
			return nil, &CatalogError{Op: "new catalog", Group: g.Name, Err: err}
		}
	}
	return &Catalog{order: slices.Clone(order), groups: ordered}, nil
}

// Groups returns the groups bottom to top. The slice is a copy; the options
// it points at are shared and must be treated as read-only.
func (c *Catalog) Groups() []LayerGroup { return slices.Clone(c.groups) }

func (c *Catalog) Len() int { return len(c.groups) }

func (c *Catalog) Order() []string { return slices.Clone(c.order) }

func (c *Catalog) Root() string { return c.root }

// Group looks a group up by name.
func (c *Catalog) Group(name string) (*LayerGroup, bool) {
	for i := range c.groups {
		if c.groups[i].Name == name {
			return &c.groups[i], true
		}
	}
	return nil, false
}

// CheckDimensions reports the first option whose size differs from the first
// background option. Composite checks the same thing per request; this runs
// it once over the whole catalog.
func (c *Catalog) CheckDimensions() error {
	if len(c.groups) == 0 {
		return nil
	}
	want := c.groups[0].Options[0].Image.Bounds().Size()
	for _, g := range c.groups {
		for _, o := range g.Options {
			if got := o.Image.Bounds().Size(); got != want {
				return &DimensionMismatchError{Group: g.Name, Trait: o.Name, Want: want, Got: got}
			}
		}
	}
	return nil
}

// LoadCatalog scans root for one directory per name in order, decodes every
// image inside, and returns the groups ordered bottom to top.
//
// Directory names match order entries case-insensitively; the group takes the
// spelling used in order. Directories not named in order are ignored.
func LoadCatalog(ctx context.Context, root string, order []string) (*Catalog, error) {
	logger := ctxlog.FromContext(ctx).With("root", root)
	if _, err := rankIndex(order); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &CatalogError{Op: "open root", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &CatalogError{Op: "open root", Path: root, Err: errors.New("not a directory")}
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &CatalogError{Op: "read root", Path: root, Err: err}
	}

	dirs := make(map[string]string, len(order))
	for _, e := range entries {
		if !isDir(root, e) {
			continue
		}
		name, ok := matchGroup(e.Name(), order)
		if !ok {
			logger.Debug("Ignoring directory outside layer order.", "dir", e.Name())
			continue
		}
		if prev, dup := dirs[name]; dup {
			return nil, &CatalogError{
				Op:    "scan root",
				Path:  root,
				Group: name,
				Err:   fmt.Errorf("%w: %q and %q", ErrDuplicateGroup, prev, e.Name()),
			}
		}
		dirs[name] = e.Name()
	}

	var missing []string
	for _, name := range order {
		if _, ok := dirs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &CatalogError{
			Op:   "scan root",
			Path: root,
			Err:  fmt.Errorf("%w: %s", ErrMissingGroup, strings.Join(missing, ", ")),
		}
	}

	groups := make([]LayerGroup, 0, len(order))
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := loadGroup(ctx, name, filepath.Join(root, dirs[name]))
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded layer group.", "group", g.Name, "options", len(g.Options))
		groups = append(groups, g)
	}

	ordered, err := OrderGroups(groups, order)
	if err != nil {
		return nil, err
	}
	logger.Info("Layer catalog loaded.", "groups", len(ordered))
	return &Catalog{root: root, order: slices.Clone(order), groups: ordered}, nil
}

func loadGroup(ctx context.Context, name, dir string) (LayerGroup, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return LayerGroup{}, &CatalogError{Op: "read group", Path: dir, Group: name, Err: err}
	}
	sidecar, err := readWeightsFile(dir)
	if err != nil {
		return LayerGroup{}, &CatalogError{Op: "read weights", Path: dir, Group: name, Err: err}
	}

	g := LayerGroup{Name: name}
	for _, e := range entries {
		if e.IsDir() || !utils.IsImageFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		trait, weight, err := parseOptionName(e.Name())
		if err != nil {
			return LayerGroup{}, &CatalogError{Op: "parse option", Path: path, Group: name, Err: err}
		}
		if slices.ContainsFunc(g.Options, func(o LayerOption) bool { return o.Name == trait }) {
			return LayerGroup{}, &CatalogError{
				Op:    "parse option",
				Path:  path,
				Group: name,
				Err:   fmt.Errorf("%w: %q", ErrDuplicateTrait, trait),
			}
		}
		img, err := utils.ReadImage(path)
		if err != nil {
			return LayerGroup{}, &CatalogError{
				Op:    "decode option",
				Path:  path,
				Group: name,
				Err:   fmt.Errorf("%w: %v", ErrDecode, err),
			}
		}
		ctxlog.FromContext(ctx).Debug("Loaded layer option.", "group", name, "trait", trait, "weight", weight)
		g.Options = append(g.Options, LayerOption{
			Name:   trait,
			Weight: weight,
			Path:   path,
			Image:  utils.ToRGBA(img),
		})
	}

	if len(g.Options) == 0 {
		return LayerGroup{}, &CatalogError{Op: "read group", Path: dir, Group: name, Err: ErrEmptyGroup}
	}
	if err := applyWeights(g.Options, sidecar); err != nil {
		return LayerGroup{}, &CatalogError{Op: "read weights", Path: dir, Group: name, Err: err}
	}
	if err := checkTotalWeight(g.Options); err != nil {
		return LayerGroup{}, &CatalogError{Op: "read weights", Path: dir, Group: name, Err: err}
	}
	return g, nil
}

func matchGroup(dir string, order []string) (string, bool) {
	trimmed := strings.TrimSpace(dir)
	for _, name := range order {
		if strings.EqualFold(trimmed, name) {
			return name, true
		}
	}
	return "", false
}

// isDir follows symlinks so a layer tree assembled from links still loads.
func isDir(root string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(filepath.Join(root, e.Name()))
	return err == nil && fi.IsDir()
}
