package app

// DefaultCities is the city list advertised to every new connection
// when no override is configured. Joining is not restricted to this
// list; a city room exists as soon as someone is in it.
var DefaultCities = []string{
	"Москва", "Санкт-Петербург", "Новосибирск", "Екатеринбург", "Казань",
	"Нижний Новгород", "Челябинск", "Самара", "Омск", "Ростов-на-Дону",
	"Уфа", "Красноярск", "Воронеж", "Пермь", "Волгоград",
}
