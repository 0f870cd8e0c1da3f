// Package workspace tracks the client's workspace folders and maps documents
// to the folder that owns them.
package workspace

import (
	"strings"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// FindOwningFolder returns the deepest folder containing uri. A folder root
// is treated as if it ended in a slash, so file:///a/b never owns
// file:///a/bc/x.
func FindOwningFolder(folders []protocol.WorkspaceFolder, uri string) (protocol.WorkspaceFolder, bool) {
	var result protocol.WorkspaceFolder
	found := false
	maxLength := 0
	for _, folder := range folders {
		root := folder.URI
		if !strings.HasSuffix(root, "/") {
			root += "/"
		}
		if strings.HasPrefix(uri, root) && len(root) > maxLength {
			result = folder
			maxLength = len(root)
			found = true
		}
	}
	return result, found
}

// Folders holds the current set of workspace folders. The set is only ever
// replaced as a whole.
type Folders struct {
	mu      sync.RWMutex
	folders []protocol.WorkspaceFolder
}

func NewFolders(folders []protocol.WorkspaceFolder) *Folders {
	f := &Folders{}
	f.Replace(folders)
	return f
}

// Replace swaps in a new folder list.
func (f *Folders) Replace(folders []protocol.WorkspaceFolder) {
	snapshot := make([]protocol.WorkspaceFolder, len(folders))
	copy(snapshot, folders)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = snapshot
}

// Snapshot returns the folders as of now. Callers must not modify it.
func (f *Folders) Snapshot() []protocol.WorkspaceFolder {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.folders
}

// Owner finds the folder owning uri.
func (f *Folders) Owner(uri string) (protocol.WorkspaceFolder, bool) {
	return FindOwningFolder(f.Snapshot(), uri)
}
