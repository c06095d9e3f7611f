package pp

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/openhab/yamlpp/internal/tree"
)

// predefinedNames is the closed, protected set from spec.md §3: these can
// never be overridden by a user variables: block or an !include/!insert
// vars: override.
var predefinedNames = map[string]bool{
	"OPENHAB_CONF":     true,
	"OPENHAB_USERDATA": true,
	"__FILE__":         true,
	"__FILE_NAME__":    true,
	"__FILE_EXT__":     true,
	"__DIRECTORY__":    true,
	"__DIR__":          true,
}

// predefinedVars computes the reserved variable map for absPath. OPENHAB_CONF
// and OPENHAB_USERDATA come from the environment and are the same for every
// file in a load(); the __FILE*__/__DIR*__ family is recomputed per file.
// __DIR__ is kept as a short alias of __DIRECTORY__ - the spec names both but
// never distinguishes them, so we treat __DIR__ as the convenience form.
func predefinedVars(absPath string) *tree.Value {
	dir := filepath.Dir(absPath)
	base := filepath.Base(absPath)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	name := strings.TrimSuffix(base, filepath.Ext(base))

	v := tree.NewMap()
	v.Set("OPENHAB_CONF", tree.NewString(os.Getenv("OPENHAB_CONF")))
	v.Set("OPENHAB_USERDATA", tree.NewString(os.Getenv("OPENHAB_USERDATA")))
	v.Set("__FILE__", tree.NewString(absPath))
	v.Set("__FILE_NAME__", tree.NewString(name))
	v.Set("__FILE_EXT__", tree.NewString(ext))
	v.Set("__DIRECTORY__", tree.NewString(dir))
	v.Set("__DIR__", tree.NewString(dir))
	return v
}
