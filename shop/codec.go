package shop

import (
	"strings"

	orm "github.com/medatechnology/orderstore"
)

type roleCodec struct{}

func (roleCodec) Decode(rec orm.DBRecord) (Role, error) {
	name, err := rec.String(string(RoleName))
	return Role{Name: name}, err
}

func (roleCodec) Encode(p RolePatch) map[string]interface{} {
	row := map[string]interface{}{}
	if p.Name != nil {
		row[string(RoleName)] = *p.Name
	}
	return row
}

type userCodec struct{}

func (userCodec) Decode(rec orm.DBRecord) (User, error) {
	var u User
	var err error
	if u.ID, err = rec.Int64(string(UserID)); err != nil {
		return User{}, err
	}
	for _, f := range []struct {
		col orm.Column
		dst *string
	}{
		{UserEmail, &u.Email},
		{UserPasswordHash, &u.PasswordHash},
		{UserName, &u.Name},
		{UserAddress, &u.Address},
		{UserPhone, &u.Phone},
		{UserRole, &u.Role},
	} {
		if *f.dst, err = rec.String(string(f.col)); err != nil {
			return User{}, err
		}
	}
	return u, nil
}

func (userCodec) Encode(p UserPatch) map[string]interface{} {
	row := map[string]interface{}{}
	// Emails are stored folded so that uniqueness holds on backends whose
	// LOWER only knows ASCII.
	if p.Email != nil {
		row[string(UserEmail)] = strings.ToLower(*p.Email)
	}
	setString(row, UserPasswordHash, p.PasswordHash)
	setString(row, UserName, p.Name)
	setString(row, UserAddress, p.Address)
	setString(row, UserPhone, p.Phone)
	setString(row, UserRole, p.Role)
	return row
}

type productCodec struct{}

func (productCodec) Decode(rec orm.DBRecord) (Product, error) {
	var p Product
	var err error
	if p.ID, err = rec.Int64(string(ProductID)); err != nil {
		return Product{}, err
	}
	if p.Name, err = rec.String(string(ProductName)); err != nil {
		return Product{}, err
	}
	if p.Price, err = rec.Decimal(string(ProductPrice)); err != nil {
		return Product{}, err
	}
	if p.Image, err = rec.String(string(ProductImage)); err != nil {
		return Product{}, err
	}
	if p.Rating, err = rec.Float64(string(ProductRating)); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (productCodec) Encode(p ProductPatch) map[string]interface{} {
	row := map[string]interface{}{}
	setString(row, ProductName, p.Name)
	setString(row, ProductImage, p.Image)
	if p.Price != nil {
		row[string(ProductPrice)] = p.Price.Round(2)
	}
	if p.Rating != nil {
		row[string(ProductRating)] = *p.Rating
	}
	return row
}

type ingredientCodec struct{}

func (ingredientCodec) Decode(rec orm.DBRecord) (Ingredient, error) {
	id, err := rec.Int64(string(IngredientID))
	if err != nil {
		return Ingredient{}, err
	}
	name, err := rec.String(string(IngredientName))
	if err != nil {
		return Ingredient{}, err
	}
	return Ingredient{ID: id, Name: name}, nil
}

func (ingredientCodec) Encode(p IngredientPatch) map[string]interface{} {
	row := map[string]interface{}{}
	setString(row, IngredientName, p.Name)
	return row
}

type cartCodec struct{}

func (cartCodec) Decode(rec orm.DBRecord) (Cart, error) {
	id, userID, err := decodeOwned(rec, CartID, CartUserID)
	return Cart{ID: id, UserID: userID}, err
}

func (cartCodec) Encode(p CartPatch) map[string]interface{} {
	row := map[string]interface{}{}
	if p.UserID != nil {
		row[string(CartUserID)] = *p.UserID
	}
	return row
}

type orderCodec struct{}

func (orderCodec) Decode(rec orm.DBRecord) (Order, error) {
	id, userID, err := decodeOwned(rec, OrderID, OrderUserID)
	return Order{ID: id, UserID: userID}, err
}

func (orderCodec) Encode(p OrderPatch) map[string]interface{} {
	row := map[string]interface{}{}
	if p.UserID != nil {
		row[string(OrderUserID)] = *p.UserID
	}
	return row
}

func decodeOwned(rec orm.DBRecord, idCol, userCol orm.Column) (int64, int64, error) {
	id, err := rec.Int64(string(idCol))
	if err != nil {
		return 0, 0, err
	}
	userID, err := rec.Int64(string(userCol))
	if err != nil {
		return 0, 0, err
	}
	return id, userID, nil
}

func setString(row map[string]interface{}, col orm.Column, v *string) {
	if v != nil {
		row[string(col)] = *v
	}
}
