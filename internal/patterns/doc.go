// Package patterns indexes a corpus of markdown documents describing
// recommended workflow idioms.
//
// Documents are discovered by walking an fs.FS for *.md files. A
// document's name is its base filename without extension and its category
// is the directory it lives in. Content is read lazily and cached for the
// life of the Library: concurrent readers of the same name share a single
// file read.
package patterns
