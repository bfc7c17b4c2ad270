package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nextlinkuae/site-backend/errs"
)

const maxJSONBodySize = 1 << 20

// decodeJSON reads at most 1MB of JSON into dst. Unknown fields are ignored
// so the admin client can send whole project objects back.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewMaxBodySizeExceededError(maxErr.Limit)
		}
		return errs.NewInvalidJSONError(err)
	}
	return nil
}
