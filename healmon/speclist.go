package healmon

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ProcessSpec is one declared process: a name to keep alive plus resource
// ceilings. The ceilings are accepted as configuration but not enforced by
// the supervisor; enforcement belongs to a separate resource monitor.
type ProcessSpec struct {
	Name          string
	CPULimit      int
	MemoryLimitMB int
}

// ReadSpecList reads the process list file: one "name cpu_limit mem_limit_mb"
// record per line, '#' comments and blank lines ignored, malformed lines
// skipped. Order is preserved; duplicate names are allowed and resolved by
// the reconciler's duplicate-start suppression. A missing file yields an
// empty list, not an error.
func ReadSpecList(path string) ([]ProcessSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to open process list")
	}
	defer f.Close()

	var specs []ProcessSpec

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		cpu, err := strconv.Atoi(fields[len(fields)-2])
		if err != nil {
			continue
		}
		mem, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			continue
		}

		specs = append(specs, ProcessSpec{
			Name:          fields[0],
			CPULimit:      cpu,
			MemoryLimitMB: mem,
		})
	}

	if err := scanner.Err(); err != nil {
		return specs, errors.Wrap(err, "failed to read process list")
	}

	return specs, nil
}
