package configloader

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/gitship/gitship/internal/config"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// InterpolateEnvVars expands ${NAME} references between entries of the env list in place.
// References to names outside the list are left untouched so the shell running a command can
// still expand them. Cycles are an error.
func InterpolateEnvVars(envVars []config.EnvVar) error {
	index := make(map[string]int, len(envVars))
	for i, ev := range envVars {
		index[ev.Name] = i
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(envVars))

	var resolve func(i int, path []string) error
	resolve = func(i int, path []string) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return cycleError(envVars[i].Name, path)
		}
		state[i] = visiting
		path = append(path, envVars[i].Name)

		var refErr error
		envVars[i].Value = envRefPattern.ReplaceAllStringFunc(envVars[i].Value, func(ref string) string {
			name := envRefPattern.FindStringSubmatch(ref)[1]
			j, ok := index[name]
			if !ok || refErr != nil {
				return ref
			}
			if j == i {
				refErr = fmt.Errorf("env var '%s' references itself", name)
				return ref
			}
			if err := resolve(j, path); err != nil {
				refErr = err
				return ref
			}
			return envVars[j].Value
		})
		if refErr != nil {
			return refErr
		}

		state[i] = done
		return nil
	}

	for i := range envVars {
		if err := resolve(i, nil); err != nil {
			return err
		}
	}
	return nil
}

func cycleError(start string, path []string) error {
	members := []string{start}
	for k := len(path) - 1; k >= 0 && path[k] != start; k-- {
		members = append(members, path[k])
	}
	sort.Strings(members)
	return fmt.Errorf("circular dependency detected among env vars: %v", members)
}
