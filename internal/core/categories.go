package core

// DefaultCategories returns the system categories every user starts with.
// They are shared across users and cannot be modified.
func DefaultCategories() []Category {
	return []Category{
		{ID: "income-1", Name: "Salário", Icon: "💰", Type: Income, IsDefault: true},
		{ID: "income-2", Name: "Freelance", Icon: "💻", Type: Income, IsDefault: true},
		{ID: "income-3", Name: "Investimentos", Icon: "📈", Type: Income, IsDefault: true},
		{ID: "income-4", Name: "Outros", Icon: "💵", Type: Income, IsDefault: true},
		{ID: "expense-1", Name: "Alimentação", Icon: "🍽️", Type: Expense, IsDefault: true},
		{ID: "expense-2", Name: "Transporte", Icon: "🚗", Type: Expense, IsDefault: true},
		{ID: "expense-3", Name: "Moradia", Icon: "🏠", Type: Expense, IsDefault: true},
		{ID: "expense-4", Name: "Lazer", Icon: "🎮", Type: Expense, IsDefault: true},
		{ID: "expense-5", Name: "Saúde", Icon: "🏥", Type: Expense, IsDefault: true},
		{ID: "expense-6", Name: "Educação", Icon: "📚", Type: Expense, IsDefault: true},
		{ID: "expense-7", Name: "Compras", Icon: "🛍️", Type: Expense, IsDefault: true},
		{ID: "expense-8", Name: "Contas", Icon: "📄", Type: Expense, IsDefault: true},
		{ID: "expense-9", Name: "Outros", Icon: "💸", Type: Expense, IsDefault: true},
	}
}
