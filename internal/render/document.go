// internal/render/document.go
package render

import (
	"fmt"

	"golang.org/x/net/html"
)

// Document is a keyed registry of containers under one root. Containers are
// found by id, so repeated updates for the same key reuse the same node.
type Document struct {
	root  *html.Node
	index map[string]*html.Node
}

// NewDocument indexes every element with an id below root.
func NewDocument(root *html.Node) *Document {
	d := &Document{root: root, index: make(map[string]*html.Node)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id, ok := Attr(n, "id"); ok && id != "" {
				d.index[id] = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return d
}

// Root returns the document root.
func (d *Document) Root() *html.Node { return d.root }

// Get returns the container with id, if present.
func (d *Document) Get(id string) (*html.Node, bool) {
	n, ok := d.index[id]
	return n, ok
}

// Ensure returns the container with id, appending an empty <div> to the
// root first if none exists yet.
func (d *Document) Ensure(id string) *html.Node {
	if n, ok := d.index[id]; ok {
		return n
	}
	n := Element("div", "id", id)
	d.root.AppendChild(n)
	d.index[id] = n
	return n
}

// Replace swaps the contents and attributes of container id for those of
// node, keeping the container itself in place. The id is preserved.
func (d *Document) Replace(id string, node *html.Node) error {
	target, ok := d.index[id]
	if !ok {
		return fmt.Errorf("container %q not found", id)
	}

	// drop the old subtree from the index
	for c := target.FirstChild; c != nil; c = c.NextSibling {
		d.unindex(c)
	}
	for target.FirstChild != nil {
		target.RemoveChild(target.FirstChild)
	}

	target.Data = node.Data
	target.DataAtom = node.DataAtom
	target.Attr = append([]html.Attribute(nil), node.Attr...)
	setAttr(target, "id", id)

	for node.FirstChild != nil {
		c := node.FirstChild
		node.RemoveChild(c)
		target.AppendChild(c)
		d.reindex(c)
	}
	return nil
}

// Len returns the number of indexed containers.
func (d *Document) Len() int { return len(d.index) }

func (d *Document) unindex(n *html.Node) {
	if n.Type == html.ElementNode {
		if id, ok := Attr(n, "id"); ok {
			delete(d.index, id)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.unindex(c)
	}
}

func (d *Document) reindex(n *html.Node) {
	if n.Type == html.ElementNode {
		if id, ok := Attr(n, "id"); ok && id != "" {
			d.index[id] = n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.reindex(c)
	}
}
