package video

import (
	"fmt"
	"time"

	"lms/config"

	"github.com/go-resty/resty/v2"
)

// Asset is the hosting provider's view of an uploaded video.
type Asset struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"` // preparing, ready, errored
	Duration    float64 `json:"duration"`
	PlaybackIDs []struct {
		ID     string `json:"id"`
		Policy string `json:"policy"`
	} `json:"playback_ids"`
}

type assetResponse struct {
	Data Asset `json:"data"`
}

type playbackTokenResponse struct {
	Data struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"data"`
}

func client() *resty.Client {
	cfg := config.AppConfig
	return resty.New().
		SetBaseURL(cfg.VideoApiURL).
		SetBasicAuth(cfg.VideoApiToken, cfg.VideoApiSecret).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)
}

// GetAsset fetches the asset's current state from the hosting provider.
func GetAsset(assetID string) (*Asset, error) {
	if assetID == "" {
		return nil, fmt.Errorf("asset id is required")
	}

	var result assetResponse
	resp, err := client().R().
		SetResult(&result).
		Get("/video/v1/assets/" + assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset: %v", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("video API error: %s", resp.String())
	}

	return &result.Data, nil
}

// PlaybackToken mints a short-lived signed token for a playback id. The
// token gates the stream URL so paid content can't be hot-linked.
func PlaybackToken(playbackID string) (string, error) {
	if playbackID == "" {
		return "", fmt.Errorf("playback id is required")
	}

	var result playbackTokenResponse
	resp, err := client().R().
		SetBody(map[string]interface{}{
			"playback_id": playbackID,
			"ttl":         config.AppConfig.PlaybackTokenTTL,
		}).
		SetResult(&result).
		Post("/video/v1/playback-tokens")
	if err != nil {
		return "", fmt.Errorf("failed to mint playback token: %v", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("video API error: %s", resp.String())
	}

	return result.Data.Token, nil
}

// StreamURL builds the playback URL for a token-gated stream.
func StreamURL(playbackID, token string) string {
	return fmt.Sprintf("https://stream.mux.com/%s.m3u8?token=%s", playbackID, token)
}
