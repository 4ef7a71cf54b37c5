package audiosource

import (
	"net/http"

	"github.com/kkdai/youtube/v2"
	"golang.org/x/time/rate"
)

// Deps are the collaborators sources use to reach the outside world.
type Deps struct {
	HTTPClient HTTPClient
	Extractor  Extractor
	YouTube    *youtube.Client
	// NiconicoLimiter throttles requests to niconico. Nil means unlimited.
	NiconicoLimiter *rate.Limiter
	// NiconicoEndpoints overrides the niconico hosts. The zero value uses the real ones.
	NiconicoEndpoints NiconicoEndpoints
}

func (d Deps) niconicoEndpoints() NiconicoEndpoints {
	if d.NiconicoEndpoints.Watch == "" || d.NiconicoEndpoints.API == "" {
		return DefaultNiconicoEndpoints
	}
	return d.NiconicoEndpoints
}

func (d Deps) httpClient() HTTPClient {
	if d.HTTPClient == nil {
		return http.DefaultClient
	}
	return d.HTTPClient
}
