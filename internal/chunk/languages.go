package chunk

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/dockerfile"
	"github.com/smacker/go-tree-sitter/elixir"
	"github.com/smacker/go-tree-sitter/elm"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/groovy"
	"github.com/smacker/go-tree-sitter/hcl"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/lua"
	"github.com/smacker/go-tree-sitter/ocaml"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/protobuf"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/svelte"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// LanguageRegistry manages supported languages and their configurations
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig // keyed by language name
	extToLang   map[string]string          // extension -> language name
	tsLanguages map[string]*sitter.Language
}

// NewLanguageRegistry creates a new registry with default language configurations
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}

	// Register default languages
	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	r.registerCLike()
	r.registerJVMFamily()
	r.registerSystemsAndScripting()
	r.registerMarkupAndConfig()

	return r
}

// GetByExtension returns the language configuration for a file extension
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Normalize extension
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	langName, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}

	config, ok := r.configs[langName]
	return config, ok
}

// GetByName returns the language configuration by name
func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage returns the tree-sitter language for a language name
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions returns all supported file extensions
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

// registerLanguage adds a language to the registry
func (r *LanguageRegistry) registerLanguage(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang

	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

func (r *LanguageRegistry) registerGo() {
	config := &LanguageConfig{
		Name:       "go",
		Extensions: []string{".go"},
		FunctionTypes: []string{
			"function_declaration",
		},
		MethodTypes: []string{
			"method_declaration",
		},
		ClassTypes: []string{}, // Go doesn't have classes
		TypeDefTypes: []string{
			"type_declaration",
		},
		InterfaceTypes: []string{}, // Go interfaces are type declarations
		ConstantTypes: []string{
			"const_declaration",
		},
		VariableTypes: []string{
			"var_declaration",
		},
		NameField: "name",
	}

	r.registerLanguage(config, golang.GetLanguage())
}

func (r *LanguageRegistry) registerTypeScript() {
	// TypeScript
	tsConfig := &LanguageConfig{
		Name:       "typescript",
		Extensions: []string{".ts"},
		FunctionTypes: []string{
			"function_declaration",
		},
		MethodTypes: []string{
			"method_definition",
		},
		ClassTypes: []string{
			"class_declaration",
		},
		InterfaceTypes: []string{
			"interface_declaration",
		},
		TypeDefTypes: []string{
			"type_alias_declaration",
		},
		ConstantTypes: []string{
			"lexical_declaration", // const and let
		},
		VariableTypes: []string{
			"variable_declaration", // var
		},
		NameField: "name",
	}
	r.registerLanguage(tsConfig, typescript.GetLanguage())

	// TSX
	tsxConfig := &LanguageConfig{
		Name:           "tsx",
		Extensions:     []string{".tsx"},
		FunctionTypes:  tsConfig.FunctionTypes,
		MethodTypes:    tsConfig.MethodTypes,
		ClassTypes:     tsConfig.ClassTypes,
		InterfaceTypes: tsConfig.InterfaceTypes,
		TypeDefTypes:   tsConfig.TypeDefTypes,
		ConstantTypes:  tsConfig.ConstantTypes,
		VariableTypes:  tsConfig.VariableTypes,
		NameField:      tsConfig.NameField,
	}
	r.registerLanguage(tsxConfig, tsx.GetLanguage())
}

func (r *LanguageRegistry) registerJavaScript() {
	// JavaScript
	jsConfig := &LanguageConfig{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs"},
		FunctionTypes: []string{
			"function_declaration",
			"function",
		},
		MethodTypes: []string{
			"method_definition",
		},
		ClassTypes: []string{
			"class_declaration",
		},
		InterfaceTypes: []string{}, // JS doesn't have interfaces
		TypeDefTypes:   []string{},
		ConstantTypes: []string{
			"lexical_declaration", // const and let
		},
		VariableTypes: []string{
			"variable_declaration", // var
		},
		NameField: "name",
	}
	r.registerLanguage(jsConfig, javascript.GetLanguage())

	// JSX (uses same parser as JS)
	jsxConfig := &LanguageConfig{
		Name:           "jsx",
		Extensions:     []string{".jsx"},
		FunctionTypes:  jsConfig.FunctionTypes,
		MethodTypes:    jsConfig.MethodTypes,
		ClassTypes:     jsConfig.ClassTypes,
		InterfaceTypes: jsConfig.InterfaceTypes,
		TypeDefTypes:   jsConfig.TypeDefTypes,
		ConstantTypes:  jsConfig.ConstantTypes,
		VariableTypes:  jsConfig.VariableTypes,
		NameField:      jsConfig.NameField,
	}
	r.registerLanguage(jsxConfig, javascript.GetLanguage())
}

func (r *LanguageRegistry) registerPython() {
	config := &LanguageConfig{
		Name:       "python",
		Extensions: []string{".py"},
		FunctionTypes: []string{
			"function_definition",
		},
		MethodTypes: []string{}, // In Python, methods are function_definition inside class
		ClassTypes: []string{
			"class_definition",
		},
		InterfaceTypes: []string{}, // Python doesn't have interfaces
		TypeDefTypes:   []string{},
		ConstantTypes:  []string{}, // Python doesn't have const keyword
		VariableTypes: []string{
			"assignment", // Top-level assignments (module-level variables)
		},
		NameField: "name",
	}
	r.registerLanguage(config, python.GetLanguage())
}

// registerCLike registers C, C++, and C#, whose grammars share a function/
// class/struct naming convention close enough to template from one spot.
func (r *LanguageRegistry) registerCLike() {
	r.registerLanguage(&LanguageConfig{
		Name:          "c",
		Extensions:    []string{".c", ".h"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"struct_specifier"},
		ConstantTypes: []string{"preproc_def"},
		VariableTypes: []string{"declaration"},
		NameField:     "name",
	}, c.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:          "cpp",
		Extensions:    []string{".cc", ".cpp", ".cxx", ".hpp", ".hh"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"class_specifier", "struct_specifier"},
		ConstantTypes: []string{"preproc_def"},
		VariableTypes: []string{"declaration"},
		NameField:     "name",
	}, cpp.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:           "csharp",
		Extensions:     []string{".cs"},
		FunctionTypes:  []string{"method_declaration", "local_function_statement"},
		ClassTypes:     []string{"class_declaration", "struct_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		ConstantTypes:  []string{"field_declaration"},
		NameField:      "name",
	}, csharp.GetLanguage())
}

// registerJVMFamily registers Java, Kotlin, and Scala.
func (r *LanguageRegistry) registerJVMFamily() {
	r.registerLanguage(&LanguageConfig{
		Name:           "java",
		Extensions:     []string{".java"},
		FunctionTypes:  []string{"method_declaration"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		ConstantTypes:  []string{"field_declaration"},
		NameField:      "name",
	}, java.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:           "kotlin",
		Extensions:     []string{".kt", ".kts"},
		FunctionTypes:  []string{"function_declaration"},
		ClassTypes:     []string{"class_declaration", "object_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		VariableTypes:  []string{"property_declaration"},
		NameField:      "name",
	}, kotlin.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:          "scala",
		Extensions:    []string{".scala"},
		FunctionTypes: []string{"function_definition"},
		ClassTypes:    []string{"class_definition", "object_definition"},
		TypeDefTypes:  []string{"trait_definition"},
		NameField:     "name",
	}, scala.GetLanguage())
}

// registerSystemsAndScripting registers Rust, Ruby, PHP, Swift, Lua, Bash,
// Elixir, Elm, and OCaml.
func (r *LanguageRegistry) registerSystemsAndScripting() {
	r.registerLanguage(&LanguageConfig{
		Name:          "rust",
		Extensions:    []string{".rs"},
		FunctionTypes: []string{"function_item"},
		ClassTypes:    []string{"struct_item", "impl_item"},
		TypeDefTypes:  []string{"trait_item", "type_item", "enum_item"},
		ConstantTypes: []string{"const_item", "static_item"},
		NameField:     "name",
	}, rust.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:          "ruby",
		Extensions:    []string{".rb"},
		FunctionTypes: []string{"method"},
		ClassTypes:    []string{"class", "module"},
		NameField:     "name",
	}, ruby.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:           "php",
		Extensions:     []string{".php"},
		FunctionTypes:  []string{"function_definition", "method_declaration"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"interface_declaration"},
		NameField:      "name",
	}, php.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:           "swift",
		Extensions:     []string{".swift"},
		FunctionTypes:  []string{"function_declaration"},
		ClassTypes:     []string{"class_declaration"},
		InterfaceTypes: []string{"protocol_declaration"},
		NameField:      "name",
	}, swift.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:          "lua",
		Extensions:    []string{".lua"},
		FunctionTypes: []string{"function_declaration", "function_definition"},
		VariableTypes: []string{"variable_declaration"},
		NameField:     "name",
	}, lua.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:          "shell",
		Extensions:    []string{".sh", ".bash", ".zsh"},
		FunctionTypes: []string{"function_definition"},
		VariableTypes: []string{"variable_assignment"},
		NameField:     "name",
	}, bash.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:          "elixir",
		Extensions:    []string{".ex", ".exs"},
		FunctionTypes: []string{"call"}, // def/defp are calls to the `call` node in this grammar
		ClassTypes:    []string{},
		NameField:     "name",
	}, elixir.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "elm",
		Extensions: []string{".elm"},
		FunctionTypes: []string{
			"value_declaration",
		},
		TypeDefTypes: []string{"type_declaration", "type_alias_declaration"},
		NameField:    "name",
	}, elm.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:          "ocaml",
		Extensions:    []string{".ml", ".mli"},
		FunctionTypes: []string{"let_binding"},
		TypeDefTypes:  []string{"type_definition"},
		NameField:     "name",
	}, ocaml.GetLanguage())
}

// registerMarkupAndConfig registers grammars for markup, config, and data
// languages. Most of these have no function/class concept, so their
// configs are deliberately sparse: the chunker still parses them (useful
// for future structural queries) but symbol extraction yields little or
// nothing, same as any language where a construct list is empty.
func (r *LanguageRegistry) registerMarkupAndConfig() {
	r.registerLanguage(&LanguageConfig{
		Name:       "css",
		Extensions: []string{".css"},
		ClassTypes: []string{"rule_set"},
		NameField:  "name",
	}, css.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "html",
		Extensions: []string{".html", ".htm"},
		ClassTypes: []string{"element"},
		NameField:  "name",
	}, html.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "yaml",
		Extensions: []string{".yaml", ".yml"},
		NameField:  "name",
	}, yaml.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "toml",
		Extensions: []string{".toml"},
		NameField:  "name",
	}, toml.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "dockerfile",
		Extensions: []string{".dockerfile"},
		NameField:  "name",
	}, dockerfile.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "hcl",
		Extensions: []string{".hcl", ".tf"},
		ClassTypes: []string{"block"},
		NameField:  "name",
	}, hcl.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "protobuf",
		Extensions: []string{".proto"},
		ClassTypes: []string{"message"},
		TypeDefTypes: []string{
			"service", "enum",
		},
		NameField: "name",
	}, protobuf.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "sql",
		Extensions: []string{".sql"},
		NameField:  "name",
	}, sql.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "groovy",
		Extensions: []string{".groovy", ".gradle"},
		FunctionTypes: []string{
			"method_declaration",
		},
		ClassTypes: []string{"class_declaration"},
		NameField:  "name",
	}, groovy.GetLanguage())

	r.registerLanguage(&LanguageConfig{
		Name:       "svelte",
		Extensions: []string{".svelte"},
		ClassTypes: []string{"element"},
		NameField:  "name",
	}, svelte.GetLanguage())
}

// defaultRegistry is the global language registry
var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the global language registry
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}
