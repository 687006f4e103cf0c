package recipe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a recipe from a YAML file.
func Load(path string) (Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Recipe{}, err
	}
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Recipe{}, fmt.Errorf("parsing recipe %s: %w", path, err)
	}
	if r.Name == "" {
		r.Name = path
	}
	return r, nil
}

// Resolve returns the built-in recipe called nameOrPath, or loads it from
// disk. An empty name is the default recipe.
func Resolve(nameOrPath string) (Recipe, error) {
	if nameOrPath == "" {
		return DefaultRecipe(), nil
	}
	for _, r := range BuiltinRecipes() {
		if r.Name == nameOrPath {
			return r, nil
		}
	}
	r, err := Load(nameOrPath)
	if err != nil {
		return Recipe{}, fmt.Errorf("recipe %q is neither built in nor readable: %w", nameOrPath, err)
	}
	return r, nil
}
