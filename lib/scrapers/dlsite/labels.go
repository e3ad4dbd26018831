package dlsite

import (
	"strings"

	"gamemeta-backend/lib/textutil"
)

type field int

const (
	fieldUnknown field = iota
	fieldReleaseDate
	fieldUpdateInfo
	fieldSeries
	fieldScenario
	fieldIllustration
	fieldVoiceActor
	fieldMusic
	fieldAge
	fieldProductFormat
	fieldFileFormat
	fieldSupportedLanguages
	fieldGenre
	fieldFileSize
)

// work outline label synonyms across the locale-selectable renderings
// (original japanese, english, simplified/traditional chinese, korean).
// each label resolves to exactly one canonical field. english keys are
// lowercase, lookup is case-insensitive.
var labelFields = map[string]field{
	"release date": fieldReleaseDate,
	"販売日":          fieldReleaseDate,
	"贩卖日":          fieldReleaseDate,
	"販賣日":          fieldReleaseDate,
	"판매일":          fieldReleaseDate,

	"update information": fieldUpdateInfo,
	"更新情報":               fieldUpdateInfo,
	"更新信息":               fieldUpdateInfo,
	"更新資訊":               fieldUpdateInfo,
	"갱신 정보":              fieldUpdateInfo,

	"series name": fieldSeries,
	"シリーズ名":       fieldSeries,
	"系列名":         fieldSeries,
	"시리즈명":        fieldSeries,

	"scenario": fieldScenario,
	"シナリオ":     fieldScenario,
	"剧情":       fieldScenario,
	"劇本":       fieldScenario,
	"시나리오":     fieldScenario,

	"illustration": fieldIllustration,
	"イラスト":         fieldIllustration,
	"插画":           fieldIllustration,
	"插畫":           fieldIllustration,
	"일러스트":         fieldIllustration,

	"voice actor": fieldVoiceActor,
	"声優":          fieldVoiceActor,
	"声优":          fieldVoiceActor,
	"聲優":          fieldVoiceActor,
	"성우":          fieldVoiceActor,

	"music": fieldMusic,
	"音楽":    fieldMusic,
	"音乐":    fieldMusic,
	"音樂":    fieldMusic,
	"음악":    fieldMusic,

	"age":   fieldAge,
	"年齢指定":  fieldAge,
	"年龄指定":  fieldAge,
	"年齡指定":  fieldAge,
	"연령 지정": fieldAge,

	"product format": fieldProductFormat,
	"作品形式":           fieldProductFormat,
	"作品类型":           fieldProductFormat,
	"작품 형식":          fieldProductFormat,

	"file format": fieldFileFormat,
	"ファイル形式":      fieldFileFormat,
	"文件形式":        fieldFileFormat,
	"檔案形式":        fieldFileFormat,
	"파일 형식":       fieldFileFormat,

	"supported languages": fieldSupportedLanguages,
	"対応言語":                fieldSupportedLanguages,
	"对应语言":                fieldSupportedLanguages,
	"對應語言":                fieldSupportedLanguages,
	"대응 언어":               fieldSupportedLanguages,

	"genre": fieldGenre,
	"ジャンル":  fieldGenre,
	"分类":    fieldGenre,
	"分類":    fieldGenre,
	"장르":    fieldGenre,

	"file size": fieldFileSize,
	"ファイル容量":    fieldFileSize,
}

func resolveLabel(label string) field {
	return labelFields[strings.ToLower(textutil.Clean(label))]
}
