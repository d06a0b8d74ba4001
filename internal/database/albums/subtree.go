package albums

import (
	"fmt"

	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/entities"
)

// Subtree is an album and all of its loaded descendants, addressed by id.
type Subtree struct {
	root  uint
	nodes map[uint]*entities.Album
	depth map[uint]int
	order []uint // parents before children
}

// CollectSubtree walks the in-memory Children graph below root.
//
// The walk uses an explicit stack, so tree depth is bounded only by memory.
// An album reached twice (a cycle or a shared child) or an unsaved album in
// the graph is a validation error.
func CollectSubtree(root *entities.Album) (*Subtree, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil album", database.ErrValidation)
	}

	tree := &Subtree{
		root:  root.ID,
		nodes: make(map[uint]*entities.Album),
		depth: make(map[uint]int),
	}

	type frame struct {
		album *entities.Album
		depth int
	}
	stack := []frame{{album: root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		album := top.album
		if album.ID == entities.UnsavedID {
			return nil, fmt.Errorf("%w: album %q has not been saved", database.ErrValidation, album.Title)
		}
		if _, seen := tree.nodes[album.ID]; seen {
			return nil, fmt.Errorf("%w: album %d reached twice in graph", database.ErrValidation, album.ID)
		}

		tree.nodes[album.ID] = album
		tree.depth[album.ID] = top.depth
		tree.order = append(tree.order, album.ID)

		for i := len(album.Children) - 1; i >= 0; i-- {
			child := album.Children[i]
			if child == nil {
				continue
			}
			stack = append(stack, frame{album: child, depth: top.depth + 1})
		}
	}

	return tree, nil
}

func (t *Subtree) Root() uint {
	return t.root
}

func (t *Subtree) Len() int {
	return len(t.order)
}

// IDs returns every album id, parents before children.
func (t *Subtree) IDs() []uint {
	return append([]uint(nil), t.order...)
}

func (t *Subtree) Album(id uint) (*entities.Album, bool) {
	album, ok := t.nodes[id]
	return album, ok
}

func (t *Subtree) Depth(id uint) int {
	return t.depth[id]
}

// DeepestFirst returns the albums ordered so that every child comes before
// its parent.
func (t *Subtree) DeepestFirst() []*entities.Album {
	out := make([]*entities.Album, 0, len(t.order))
	for i := len(t.order) - 1; i >= 0; i-- {
		out = append(out, t.nodes[t.order[i]])
	}
	return out
}
