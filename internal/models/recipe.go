package models

import (
	"time"
)

// MinAmount is the lower bound for ingredient amounts and cooking time.
const MinAmount = 1

type Ingredient struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Name            string `gorm:"size:200;not null;index" json:"name"`
	MeasurementUnit string `gorm:"size:200;not null" json:"measurement_unit"`
}

func (Ingredient) TableName() string {
	return "ingredients"
}

type Tag struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Color string `gorm:"size:7;not null;uniqueIndex" json:"color"`
	Slug  string `gorm:"size:200;not null;uniqueIndex" json:"slug"`
}

func (Tag) TableName() string {
	return "tags"
}

// Recipe is owned by its author; (author, name) is unique.
type Recipe struct {
	ID                uint               `gorm:"primarykey" json:"id"`
	AuthorID          uint               `gorm:"not null;uniqueIndex:idx_recipes_author_name" json:"author_id"`
	Author            User               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Name              string             `gorm:"size:200;not null;uniqueIndex:idx_recipes_author_name" json:"name"`
	Text              string             `gorm:"type:text;not null" json:"text"`
	Image             string             `gorm:"size:512" json:"image"`
	CookingTime       int                `gorm:"not null;check:cooking_time >= 1" json:"cooking_time"`
	CreatedAt         time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	IngredientAmounts []IngredientRecipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
	TagLinks          []TagRecipe        `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Recipe) TableName() string {
	return "recipes"
}

// IngredientRecipe carries the amount of one ingredient in one recipe.
type IngredientRecipe struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	RecipeID     uint       `gorm:"not null;index" json:"recipe_id"`
	Recipe       Recipe     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	IngredientID uint       `gorm:"not null;index" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Amount       int        `gorm:"not null;check:amount >= 1" json:"amount"`
}

func (IngredientRecipe) TableName() string {
	return "ingredient_recipes"
}

type TagRecipe struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	RecipeID uint   `gorm:"not null;uniqueIndex:idx_tag_recipes_recipe_tag" json:"recipe_id"`
	Recipe   Recipe `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	TagID    uint   `gorm:"not null;uniqueIndex:idx_tag_recipes_recipe_tag" json:"tag_id"`
	Tag      Tag    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (TagRecipe) TableName() string {
	return "tag_recipes"
}
