package model

// SiteSettings はサイト全体の表示設定。
type SiteSettings struct {
	SiteName        string `json:"site_name"`
	SiteTagline     string `json:"site_tagline"`
	SiteDescription string `json:"site_description"`
}

// サイト設定のデフォルト値。バックエンドが値を返さない場合に使用する。
const (
	DefaultSiteName        = "NebulaStream"
	DefaultSiteTagline     = "Your Video Streaming Platform"
	DefaultSiteDescription = "Watch, upload, and share videos with the world"
)

// WithDefaults は空のフィールドをデフォルト値で補完したコピーを返す。
func (s SiteSettings) WithDefaults() SiteSettings {
	if s.SiteName == "" {
		s.SiteName = DefaultSiteName
	}
	if s.SiteTagline == "" {
		s.SiteTagline = DefaultSiteTagline
	}
	if s.SiteDescription == "" {
		s.SiteDescription = DefaultSiteDescription
	}
	return s
}
