package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLProfile     = time.Hour        // Company profiles (logo, official name)
	TTLSearch      = 30 * time.Minute // Symbol search results
	TTLGeneralNews = 5 * time.Minute  // General market news feed
)
