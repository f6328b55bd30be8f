package recipe

import "github.com/hammamikhairi/vibecook/internal/domain"

// seed populates the source with built-in recipes.
func (s *MemorySource) seed() {
	recipes := []*domain.Recipe{
		chickenAlfredo(),
		vegetableStirFry(),
		garlicBread(),
	}
	for _, r := range recipes {
		s.Put(r)
	}
	s.log.Debug("seeded %d recipes", len(recipes))
}

func chickenAlfredo() *domain.Recipe {
	return &domain.Recipe{
		ID:          "chicken-alfredo",
		Name:        "Chicken Alfredo",
		Description: "Creamy spaghetti alfredo with pan-seared chicken. Rich, indulgent, and not from a jar.",
		Category:    "pasta",
		Tags:        []string{"italian", "chicken", "comfort"},
		Steps: []domain.Step{
			{Order: domain.Ordered(1), Title: "Boil the water",
				Description: "Bring a large pot of salted water to a boil. It should taste like the sea."},
			{Order: domain.Ordered(2), Title: "Season the chicken",
				Description: "Season the chicken breasts on both sides. Pound them to even thickness so they cook evenly."},
			{Order: domain.Ordered(3), Title: "Sear the chicken",
				Description: "Sear in olive oil over medium-high heat, about 6 minutes per side, until golden and cooked through. Let rest."},
			{Order: domain.Ordered(4), Title: "Cook the pasta",
				Description: "Cook the spaghetti until al dente. Reserve a cup of pasta water before draining."},
			{Order: domain.Ordered(5), Title: "Start the sauce",
				Description: "Melt margarine in the same skillet. Add minced garlic for about a minute. Do not burn it."},
			{Order: domain.Ordered(6), Title: "Reduce the cream",
				Description: "Stir in the creme fraiche and simmer for about 3 minutes until it coats a spoon."},
			{Order: domain.Ordered(7), Title: "Finish the sauce",
				Description: "Off the heat, stir in the gruyere until smooth. Loosen with pasta water if needed."},
			{Order: domain.Ordered(8), Title: "Plate",
				Description: "Toss the pasta in the sauce, slice the chicken on top and serve immediately."},
		},
	}
}

func vegetableStirFry() *domain.Recipe {
	return &domain.Recipe{
		ID:          "vegetable-stir-fry",
		Name:        "Vegetable Stir Fry",
		Description: "Fast, crunchy, and customizable. The key is a screaming hot pan and not overcrowding it.",
		Category:    "vegetables",
		Tags:        []string{"asian", "quick", "vegan", "healthy"},
		Steps: []domain.Step{
			{Order: domain.Ordered(1), Title: "Start the rice",
				Description: "If serving with rice, get it going before you touch anything else."},
			{Order: domain.Ordered(2), Title: "Prep everything",
				Description: "Slice the pepper, floret the broccoli, julienne the carrot, trim the snap peas. Mince garlic and grate ginger."},
			{Order: domain.Ordered(3), Title: "Mix the sauce",
				Description: "Soy sauce, sesame oil and cornstarch with 2 tablespoons of water."},
			{Order: domain.Ordered(4), Title: "Heat the wok",
				Description: "Heat the wok on high until it just smokes, then swirl in the oil."},
			{Order: domain.Ordered(5), Title: "Stir-fry",
				Description: "Broccoli and carrots first for 2 minutes, then peppers and snap peas for 2 more. Let things char."},
			{Order: domain.Ordered(6), Title: "Aromatics",
				Description: "Push everything aside, fry garlic and ginger for 30 seconds, then toss together."},
			{Order: domain.Ordered(7), Title: "Sauce",
				Description: "Pour the sauce over and toss for 30 seconds until glossy."},
			{Title: "Serve",
				Description: "Serve immediately over rice."},
		},
	}
}

func garlicBread() *domain.Recipe {
	return &domain.Recipe{
		ID:          "garlic-bread",
		Name:        "Garlic Bread",
		Description: "Crisp edges, soft middle, far too much garlic.",
		Category:    "bread",
		Tags:        []string{"side", "quick", "vegetarian"},
		Steps: []domain.Step{
			{Order: domain.Ordered(1), Title: "Make garlic butter",
				Description: "Mash soft butter with minced garlic, parsley and a pinch of salt."},
			{Order: domain.Ordered(2), Title: "Spread",
				Description: "Split the baguette lengthwise and spread the butter edge to edge."},
			{Order: domain.Ordered(3), Title: "Bake",
				Description: "Bake at 200C for 10 minutes, then grill for 1 to 2 minutes until golden."},
		},
	}
}
