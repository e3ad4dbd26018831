package fanza

import "gamemeta-backend/lib/textutil"

type field int

const (
	fieldUnknown field = iota
	fieldBrand
	fieldReleaseDate
	fieldGameGenre
	fieldSeries
	fieldGenre
	fieldIllustration
	fieldScenario
	fieldVoiceActor
	fieldMusic
	fieldRating
)

// value the storefront renders for "not applicable" cells
const noneValue = "----"

// label synonyms across both layout families. the storefront says
// 配信開始日 where the catalog says 発売日, everything else overlaps.
var labelFields = map[string]field{
	"ブランド":    fieldBrand,
	"配信開始日":   fieldReleaseDate,
	"発売日":     fieldReleaseDate,
	"ゲームジャンル": fieldGameGenre,
	"シリーズ":    fieldSeries,
	"ジャンル":    fieldGenre,
	"原画":      fieldIllustration,
	"シナリオ":    fieldScenario,
	"声優":      fieldVoiceActor,
	"ボイス":     fieldVoiceActor,
	"音楽":      fieldMusic,
	"平均評価":    fieldRating,
}

func resolveLabel(label string) field {
	return labelFields[textutil.CleanLabel(label)]
}
