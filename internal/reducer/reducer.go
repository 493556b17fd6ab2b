// Package reducer turns the pages fetched for one destination into the single
// payload that gets written there.
package reducer

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

type Reducer struct {
	logger logster.Logger
}

func New(logger logster.Logger) *Reducer {
	return &Reducer{logger: logger.WithField("Layer", "Reducer")}
}

// Reduce returns the payload for resp.Dest. A single page passes through
// untouched. Several pages are folded into one object keyed by each page's
// own key; a repeated key gets its position appended. ok is false when there is nothing to write, which includes
// multi-page file resources: those cannot be merged and are skipped.
func (r *Reducer) Reduce(resp models.Response) (payload json.RawMessage, ok bool, err error) {
	switch len(resp.Pages) {
	case 0:
		r.logger.Warnf("%s: no data returned", resp.Dest)
		return nil, false, nil
	case 1:
		return resp.Pages[0].Data, true, nil
	}

	if resp.Task.Type == models.KindFile {
		r.logger.Warnf("%s: files can not be merged at this time, skipping", resp.Dest)
		return nil, false, nil
	}

	collection := make(map[string]json.RawMessage, len(resp.Pages))
	for i, page := range resp.Pages {
		key := page.Key
		if key == "" {
			key = strconv.Itoa(i)
		}
		if _, taken := collection[key]; taken {
			slot := fmt.Sprintf("%s#%d", key, i)
			r.logger.Warnf("%s: page key %s seen twice, stored as %s", resp.Dest, key, slot)
			key = slot
		}
		collection[key] = page.Data
	}

	merged, err := json.Marshal(collection)
	if err != nil {
		return nil, false, fmt.Errorf("merge %s: %w", resp.Dest, err)
	}
	return merged, true, nil
}
