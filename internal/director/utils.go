package director

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FindLatestScenario returns the most recently modified plan under dir,
// searching one level of run directories as well.
func FindLatestScenario(dir string) (string, error) {
	var plans []string
	for _, pattern := range []string{"*.yaml", filepath.Join("*", "*.yaml")} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", err
		}
		for _, m := range matches {
			if strings.HasPrefix(filepath.Base(m), "plan") {
				plans = append(plans, m)
			}
		}
	}

	if len(plans) == 0 {
		return "", fmt.Errorf("no plan files found in %s", dir)
	}

	modTime := func(p string) time.Time {
		info, err := os.Stat(p)
		if err != nil {
			return time.Time{}
		}
		return info.ModTime()
	}
	sort.Slice(plans, func(i, j int) bool {
		return modTime(plans[i]).After(modTime(plans[j]))
	})
	return plans[0], nil
}
