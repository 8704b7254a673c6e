// Package assets moves verified video files into the destination directory
// and maintains the derived index the web app reads. Copies land under
// collision-safe timestamped names via temp+rename, each scene keeps a
// _latest symlink alias, and index.json is always rebuilt wholesale from the
// directory's current contents.
package assets
