package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// List names an enumeration endpoint.
type List string

const (
	Sports            List = "sports"
	FitnessLevels     List = "fitness_levels"
	DietTypes         List = "diet_types"
	CompetitionTypes  List = "competition_types"
	CompetitionLevels List = "competition_levels"
	SportFormats      List = "sport_formats"
)

// Lists is every enumeration the backend serves.
var Lists = []List{Sports, FitnessLevels, DietTypes, CompetitionTypes, CompetitionLevels, SportFormats}

// responseKey is the JSON field each list arrives under.
func (l List) responseKey() string {
	switch l {
	case FitnessLevels:
		return "fitnessLevels"
	case DietTypes:
		return "dietTypes"
	case CompetitionTypes:
		return "competitionTypes"
	case CompetitionLevels:
		return "levels"
	case SportFormats:
		return "formats"
	default:
		return string(l)
	}
}

// Path returns the endpoint path; arg is the sport for SportFormats.
func (l List) Path(arg string) (string, error) {
	switch l {
	case Sports, FitnessLevels, DietTypes, CompetitionTypes, CompetitionLevels:
		return "/api/" + string(l), nil
	case SportFormats:
		if arg == "" {
			return "", fmt.Errorf("sport_formats requires a sport")
		}
		return "/api/sport_formats/" + url.PathEscape(arg), nil
	default:
		return "", fmt.Errorf("unknown list %q", string(l))
	}
}

// Options fetches one enumeration list.
func (c *Client) Options(ctx context.Context, list List, arg string) ([]string, error) {
	path, err := list.Path(arg)
	if err != nil {
		return nil, err
	}
	var resp map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	raw, ok := resp[list.responseKey()]
	if !ok {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", list, err)
	}
	return values, nil
}
