package common

// Apparatus: снаряд, на который записывают гимнаста
type Apparatus struct {
	Code  string
	Title string
}

// Apparatuses: снаряды, доступные в боте; индекс попадает в callback data
var Apparatuses = []Apparatus{
	{Code: "floor", Title: "🤸 Вольные"},
	{Code: "vault", Title: "🏃 Опорный прыжок"},
	{Code: "bars", Title: "🪜 Брусья"},
	{Code: "beam", Title: "🪵 Бревно"},
	{Code: "tumbling", Title: "🔄 Акробатика"},
	{Code: "conditioning", Title: "💪 ОФП"},
}

// ApparatusTitle возвращает название снаряда по коду (или сам код)
func ApparatusTitle(code string) string {
	for _, a := range Apparatuses {
		if a.Code == code {
			return a.Title
		}
	}
	return code
}
