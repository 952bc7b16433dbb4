// Package fieldtree turns flat, bracket-addressed form field names into
// nested values.
//
// A field name such as "user[address][city]" or "tags[]" is split into
// path segments by ParsePath and written into a tree by Assign. Trees are
// made of Value nodes holding either a string leaf, an ordered node of
// named children or a list.
//
// Uploaded files are described by a Forest: five trees (name, type,
// tmp_name, error, size) updated in lockstep so every attribute of a file
// lives at the same path.
//
// # Usage
//
//	root := fieldtree.NewNode()
//	if path, ok := fieldtree.ParsePath("user[tags][]"); ok {
//	    _ = fieldtree.Assign(root, path, "go")
//	}
//	tags, _ := root.Get("user", "tags") // list ["go"]
//
// # Overwrite rules
//
// The last write wins. A scalar later extended as a container is replaced
// by that container, and a leaf written at an existing container path
// replaces the container.
package fieldtree
