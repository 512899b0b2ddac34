package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/skillsync-dev/skillsync/internal/core"
)

// appContext carries the per-invocation flags and lazily constructed
// collaborators shared by every command. One scope per invocation.
type appContext struct {
	scope    string
	jsonOut  bool
	exitCode int

	mu     sync.Mutex
	scopes *core.ScopeManager
}

func (a *appContext) baseDir() string {
	return core.DefaultBaseDir()
}

func (a *appContext) scopeDir() string {
	return core.ScopeDir(a.baseDir(), a.scope)
}

func (a *appContext) scopeManager() *core.ScopeManager {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scopes == nil {
		a.scopes = core.NewScopeManager(a.baseDir())
	}
	return a.scopes
}

// registry returns the initialized registry for the selected scope.
func (a *appContext) registry() (*core.LocalRegistry, error) {
	return a.scopeManager().Registry(a.scope)
}

// scanner builds a content scanner with the scope's signature overlay
// applied on top of the builtin catalog.
func (a *appContext) scanner() *core.ContentScanner {
	catalog := core.LoadCatalogWithOverlay(filepath.Join(a.scopeDir(), core.SignatureOverlayFile))
	return core.NewContentScanner(catalog)
}

func (a *appContext) policyStore() core.PolicyStore {
	return core.NewFilePolicyStore(a.scopeDir())
}

func (a *appContext) lockStore() core.LockStore {
	return core.NewFileLockStore(a.scopeDir())
}

func (a *appContext) installer() *core.Installer {
	return core.NewInstaller(core.NewRemoteFetcher(), a.scanner(), core.SkillsRoot(a.baseDir(), a.scope))
}

func (a *appContext) searchClient() core.SearchClient {
	return core.NewHTTPSearchClient(nil, "")
}

func (a *appContext) syncService() (*core.SyncService, error) {
	registry, err := a.registry()
	if err != nil {
		return nil, err
	}
	return core.NewSyncService(
		a.scope,
		a.policyStore(),
		a.lockStore(),
		registry,
		a.installer(),
		a.searchClient(),
	), nil
}

// shutdown stops any filesystem watches started during the invocation.
func (a *appContext) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scopes != nil {
		a.scopes.Shutdown()
	}
}

// emit writes a command result: the JSON envelope in JSON mode, the
// rendered text otherwise.
func (a *appContext) emit(data interface{}, text string) {
	if a.jsonOut {
		core.EmitCLISuccess(data)
		return
	}
	if text != "" {
		tuiPrint(text)
	}
}

// fail reports a command error in the active output mode and returns the
// mapped exit code.
func (a *appContext) fail(err error) int {
	code := core.CLIExitCodeForError(err)
	if a.jsonOut {
		return core.EmitCLIError(core.CLIErrorCodeForError(err), err.Error(), code)
	}
	printErr(err)
	return code
}

func tuiPrint(s string) {
	if s == "" {
		return
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	fmt.Print(s)
}
