package metadata

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/richinsley/comfymeta/graphapi"
)

// extra keys holding "modelId@versionId" identifiers
var airKeys = []string{"ckpt_airs", "lora_airs", "embedding_airs"}

// parseAirs collects the model version ids and bare model ids listed in the
// workflow's extra block.  Entries with a non-numeric id are skipped.
func parseAirs(w *graphapi.Workflow) (versionIDs []int, modelIDs []int) {
	versionIDs = make([]int, 0)
	modelIDs = make([]int, 0)
	if w == nil {
		return versionIDs, modelIDs
	}

	for _, key := range airKeys {
		for _, air := range w.ExtraStrings(key) {
			// "model@version"; anything after a second @ is ignored
			parts := strings.Split(air, "@")
			modelPart, versionPart := parts[0], ""
			if len(parts) > 1 {
				versionPart = parts[1]
			}
			switch {
			case versionPart != "":
				id, err := strconv.Atoi(versionPart)
				if err != nil {
					slog.Warn("skipping air with invalid version id", "key", key, "air", air)
					continue
				}
				versionIDs = append(versionIDs, id)
			case modelPart != "":
				id, err := strconv.Atoi(modelPart)
				if err != nil {
					slog.Warn("skipping air with invalid model id", "key", key, "air", air)
					continue
				}
				modelIDs = append(modelIDs, id)
			}
		}
	}
	return versionIDs, modelIDs
}
