package news

// allowedDomains restricts search results to a curated list of outlets.
const allowedDomains = "techcrunch.com,arstechnica.com,reuters.com,bbc.com,cnn.com,espn.com," +
	"sciencedaily.com,nature.com,politico.com,washingtonpost.com,theguardian.com," +
	"businessinsider.com,variety.com,deadline.com,healthline.com,webmd.com"

// searchQueries holds the boosted query per category. Exclusion terms keep
// adjacent noise categories out of the results.
var searchQueries = map[Category]string{
	CategoryScience:       "science research breakthrough discovery innovation medical space climate AI technology -entertainment -sports -gaming",
	CategorySports:        "sports NFL NBA MLB soccer olympics championship tournament -entertainment -movies -gaming",
	CategoryTechnology:    "technology software hardware AI startup cybersecurity innovation -entertainment -movies -gaming -betting",
	CategoryPolitics:      "politics government election policy legislation democracy congress senate -entertainment -sports -gaming",
	CategoryEnvironment:   "environment climate change sustainability renewable energy conservation pollution -entertainment -sports -gaming",
	CategoryHealth:        "health medical healthcare medicine disease treatment wellness -entertainment -sports -gaming",
	CategoryEntertainment: "entertainment movies music celebrities hollywood streaming -sports -politics -technology",
	CategoryBusiness:      "business finance economy markets stocks corporate earnings -entertainment -sports -gaming",
}

func searchQuery(category Category) string {
	if q, ok := searchQueries[category]; ok {
		return q
	}
	return string(category)
}

// headlineCategories maps newsletter categories onto the fixed category set
// of the top-headlines endpoint.
var headlineCategories = map[Category]string{
	CategoryScience:       "science",
	CategorySports:        "sports",
	CategoryTechnology:    "technology",
	CategoryPolitics:      "general",
	CategoryEnvironment:   "science",
	CategoryHealth:        "health",
	CategoryEntertainment: "entertainment",
	CategoryBusiness:      "business",
}

func headlineCategory(category Category) string {
	if c, ok := headlineCategories[category]; ok {
		return c
	}
	return "general"
}
